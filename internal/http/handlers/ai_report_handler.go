package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/moderation-backend/internal/dto"
	"github.com/ignatzorin/moderation-backend/internal/goroutine"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers/common"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/service"
)

// AIReportHandler отвечает за просмотр и рассмотрение AI отчётов.
type AIReportHandler struct {
	reports    *service.AIReportService
	moderation *service.ModerationService
}

// NewAIReportHandler создаёт новый хэндлер.
func NewAIReportHandler(reports *service.AIReportService, moderation *service.ModerationService) *AIReportHandler {
	return &AIReportHandler{reports: reports, moderation: moderation}
}

// ListReports GET /api/ai_reports?state=&limit=&offset=
func (h *AIReportHandler) ListReports(c *gin.Context) {
	state := c.Query("state")
	limit, offset := common.GetPagination(c)

	reports, err := h.reports.ListReports(c.Request.Context(), state, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.AIReportListResponse{
		Data:   reports,
		Limit:  limit,
		Offset: offset,
	})
}

// GetReport GET /api/ai_reports/:id
func (h *AIReportHandler) GetReport(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	report, err := h.reports.GetReport(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, report)
}

// UpdateReportState PATCH /api/ai_reports/:id/state
func (h *AIReportHandler) UpdateReportState(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.UpdateReportStateRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	report, err := h.reports.UpdateReportState(c.Request.Context(), id, req.State)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, report)
}

// TriggerScan POST /api/ai_reports/scan
// Запускает цикл сканирования в фоне и сразу возвращает 202.
func (h *AIReportHandler) TriggerScan(c *gin.Context) {
	runID := uuid.NewString()

	// Контекст запроса умирает вместе с ответом 202, сканируем на фоновом.
	goroutine.SafeGoWithContext(context.Background(), func(ctx context.Context) {
		processed, err := h.moderation.RunBatchScan(ctx)
		if logger.Log == nil {
			return
		}
		if err != nil {
			logger.Log.Errorf("Сканирование %s прервано после %d элементов: %v", runID, processed, err)
			return
		}
		logger.Log.Infof("Сканирование %s завершено, обработано элементов: %d", runID, processed)
	})

	common.RespondJSON(c, http.StatusAccepted, dto.ScanAcceptedResponse{
		Status: "accepted",
		RunID:  runID,
	})
}

// ModerateContent POST /api/ai_reports/moderate
// Прогоняет один элемент контента через модерацию.
func (h *AIReportHandler) ModerateContent(c *gin.Context) {
	var req dto.ModerateContentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	outcome, err := h.moderation.ModerateContent(c.Request.Context(), req.TargetType, req.TargetID, req.AuthorID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrInvalidModerationTarget) {
			common.RespondBadRequest(c, err.Error())
			return
		}
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"outcome": outcome})
}
