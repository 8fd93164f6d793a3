package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/pkg/apperror"
	"github.com/ignatzorin/moderation-backend/internal/repository"
)

// AIReportReviewStore — операции хранилища, нужные админскому review API.
type AIReportReviewStore interface {
	GetByID(ctx context.Context, id int64) (*models.AIReport, error)
	List(ctx context.Context, state string, limit, offset int) ([]models.AIReport, error)
	UpdateStatePending(ctx context.Context, id int64, newState string) (*models.AIReport, error)
}

// AIReportService — операции просмотра и разбора AI отчётов администратором.
type AIReportService struct {
	repo AIReportReviewStore
}

func NewAIReportService(repo AIReportReviewStore) *AIReportService {
	return &AIReportService{repo: repo}
}

// GetReport возвращает отчёт по идентификатору.
func (s *AIReportService) GetReport(ctx context.Context, id int64) (*models.AIReport, error) {
	report, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAIReportNotFound) {
		return nil, apperror.New(apperror.ErrCodeNotFound, fmt.Sprintf("AI отчёт %d не найден", id))
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить AI отчёт")
	}
	return report, nil
}

// ListReports возвращает отчёты, новые первыми, с необязательным
// фильтром по статусу.
func (s *AIReportService) ListReports(ctx context.Context, state string, limit, offset int) ([]models.AIReport, error) {
	if state != "" {
		if _, ok := models.ValidReportStates[state]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестный статус %q", state))
		}
	}
	if limit < 1 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	reports, err := s.repo.List(ctx, state, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список AI отчётов")
	}
	return reports, nil
}

// UpdateReportState переводит отчёт из PENDING в APPROVED или REJECTED.
// Любой другой переход запрещён: отчёт в терминальном состоянии
// повторно не разбирается.
func (s *AIReportService) UpdateReportState(ctx context.Context, id int64, newState string) (*models.AIReport, error) {
	if newState != models.ReportStateApproved && newState != models.ReportStateRejected {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("недопустимый статус %q: ожидается APPROVED или REJECTED", newState))
	}

	report, err := s.repo.UpdateStatePending(ctx, id, newState)
	if errors.Is(err, repository.ErrAIReportNotFound) {
		return nil, apperror.New(apperror.ErrCodeNotFound, fmt.Sprintf("AI отчёт %d не найден", id))
	}
	if errors.Is(err, repository.ErrReportNotPending) {
		// report здесь содержит текущую запись: сообщаем клиенту её состояние.
		return nil, apperror.New(apperror.ErrCodeConflict,
			fmt.Sprintf("отчёт %d уже в состоянии %s и не может быть изменён", id, report.State))
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус AI отчёта")
	}
	return report, nil
}
