package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ReportRepository читает жалобы, поданные людьми. Создание и обработка
// жалоб живут в основной платформе, здесь нужен только факт существования.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ExistsForReportedUser проверяет, подавал ли кто-то жалобу данного типа
// на пользователя. Автоматическая проверка уступает ручному разбирательству:
// при существующей жалобе контент не сканируется.
func (r *ReportRepository) ExistsForReportedUser(ctx context.Context, targetType string, reportedUserID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reports
			WHERE target_type = $1 AND id_user_reported = $2
		)
	`, targetType, reportedUserID)
	return exists, err
}
