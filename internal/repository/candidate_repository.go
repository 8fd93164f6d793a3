package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

var ErrMissionNotFound = errors.New("mission not found")

// CandidateRepository выбирает контент для пакетного сканирования.
// Выборка рандомизированная (ORDER BY random()), чтобы за много проходов
// всплывал и давно не проверявшийся контент, а не только свежий.
type CandidateRepository struct {
	db *sqlx.DB
}

func NewCandidateRepository(db *sqlx.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// SampleProfiles возвращает до limit случайных пользователей без PENDING
// отчёта на их профиль, вместе с текстовыми полями обоих видов профилей.
func (r *CandidateRepository) SampleProfiles(ctx context.Context, limit int) ([]models.ProfileRow, error) {
	rows := []models.ProfileRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT u.id_user,
		       v.bio,
		       v.skills,
		       a.name        AS assoc_name,
		       a.description AS assoc_description,
		       v.id_user IS NOT NULL AS has_volunteer,
		       a.id_user IS NOT NULL AS has_association
		FROM users u
		LEFT JOIN volunteer_profiles v ON v.id_user = u.id_user
		LEFT JOIN association_profiles a ON a.id_user = u.id_user
		WHERE u.id_user NOT IN (
			SELECT target_id FROM ai_reports
			WHERE target_type = 'PROFILE' AND state = 'PENDING'
		)
		ORDER BY random()
		LIMIT $1
	`, limit)
	return rows, err
}

// SampleMissions возвращает до limit случайных миссий без PENDING отчёта,
// вместе с пользователем ассоциации-владельца.
func (r *CandidateRepository) SampleMissions(ctx context.Context, limit int) ([]models.MissionRow, error) {
	rows := []models.MissionRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT m.id_mission,
		       m.name,
		       m.description,
		       a.id_user AS owner_user_id
		FROM missions m
		JOIN association_profiles a ON a.id_association = m.id_association
		WHERE m.id_mission NOT IN (
			SELECT target_id FROM ai_reports
			WHERE target_type = 'MISSION' AND state = 'PENDING'
		)
		ORDER BY random()
		LIMIT $1
	`, limit)
	return rows, err
}

// MissionOwnerUserID возвращает пользователя ассоциации, которой принадлежит
// миссия. Нужен при точечной проверке миссии вне пакетного прохода.
func (r *CandidateRepository) MissionOwnerUserID(ctx context.Context, missionID int64) (int64, error) {
	var ownerID int64
	err := r.db.GetContext(ctx, &ownerID, `
		SELECT a.id_user
		FROM missions m
		JOIN association_profiles a ON a.id_association = m.id_association
		WHERE m.id_mission = $1
	`, missionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMissionNotFound
	}
	return ownerID, err
}
