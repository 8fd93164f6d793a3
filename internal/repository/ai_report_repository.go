package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

var (
	ErrAIReportNotFound = errors.New("ai report not found")
	ErrReportNotPending = errors.New("ai report is not pending")
	ErrQuotaExceeded    = errors.New("daily moderation quota exceeded")
	ErrDuplicatePending = errors.New("pending ai report already exists for target")
)

// quotaLockKey — ключ advisory-блокировки, сериализующей проверку квоты
// и вставку отчёта между конкурентными процессами.
const quotaLockKey int64 = 7420231105

type AIReportRepository struct {
	db *sqlx.DB
}

func NewAIReportRepository(db *sqlx.DB) *AIReportRepository {
	return &AIReportRepository{db: db}
}

// CountCreatedToday считает отчёты, созданные с начала текущих суток.
// created_at — единственное поле, ограничивающее окно квоты.
func (r *AIReportRepository) CountCreatedToday(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM ai_reports WHERE created_at >= CURRENT_DATE
	`)
	if err != nil {
		return 0, fmt.Errorf("ai_reports: не удалось посчитать дневную квоту: %w", err)
	}
	return count, nil
}

// HasPendingForTarget проверяет, есть ли уже PENDING отчёт на эту цель.
func (r *AIReportRepository) HasPendingForTarget(ctx context.Context, targetType string, targetID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM ai_reports
			WHERE target_type = $1 AND target_id = $2 AND state = 'PENDING'
		)
	`, targetType, targetID)
	return exists, err
}

// CreateWithinQuota атомарно проверяет дневную квоту и вставляет отчёт.
// Проверка и вставка идут в одной транзакции под advisory-блокировкой,
// иначе два конкурентных процесса могли бы вдвоём превысить лимит.
// Возвращает ErrQuotaExceeded при исчерпанной квоте и ErrDuplicatePending,
// если параллельная проверка успела создать PENDING отчёт на ту же цель.
func (r *AIReportRepository) CreateWithinQuota(ctx context.Context, report *models.AIReport, dailyQuota int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ai_reports: не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, quotaLockKey); err != nil {
		return fmt.Errorf("ai_reports: не удалось взять advisory lock: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM ai_reports WHERE created_at >= CURRENT_DATE
	`); err != nil {
		return fmt.Errorf("ai_reports: не удалось посчитать дневную квоту: %w", err)
	}
	if count >= dailyQuota {
		return ErrQuotaExceeded
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ai_reports (target_type, target_id, reported_user_id, classification, confidence_score, model_version, state)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING')
		RETURNING id_report, state, created_at
	`, report.TargetType, report.TargetID, report.ReportedUserID,
		report.Classification, report.ConfidenceScore, report.ModelVersion).
		Scan(&report.ID, &report.State, &report.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePending
		}
		return fmt.Errorf("ai_reports: не удалось создать отчёт: %w", err)
	}

	return tx.Commit()
}

func (r *AIReportRepository) GetByID(ctx context.Context, id int64) (*models.AIReport, error) {
	var report models.AIReport
	err := r.db.GetContext(ctx, &report, `SELECT * FROM ai_reports WHERE id_report = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAIReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List возвращает отчёты, новые первыми, с необязательным фильтром по статусу.
func (r *AIReportRepository) List(ctx context.Context, state string, limit, offset int) ([]models.AIReport, error) {
	reports := []models.AIReport{}
	if state != "" {
		err := r.db.SelectContext(ctx, &reports, `
			SELECT * FROM ai_reports WHERE state = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, state, limit, offset)
		return reports, err
	}
	err := r.db.SelectContext(ctx, &reports, `
		SELECT * FROM ai_reports ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	return reports, err
}

// UpdateStatePending переводит PENDING отчёт в новое состояние. Условие
// state = 'PENDING' в самом UPDATE делает переход атомарным: два админа не
// смогут закрыть один отчёт по-разному. Для отчёта в терминальном состоянии
// возвращает текущую запись вместе с ErrReportNotPending.
func (r *AIReportRepository) UpdateStatePending(ctx context.Context, id int64, newState string) (*models.AIReport, error) {
	var report models.AIReport
	err := r.db.GetContext(ctx, &report, `
		UPDATE ai_reports SET state = $2
		WHERE id_report = $1 AND state = 'PENDING'
		RETURNING *
	`, id, newState)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return current, ErrReportNotPending
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}
