package dto

import "github.com/ignatzorin/moderation-backend/internal/models"

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AIReportListResponse represents a paginated AI reports list
type AIReportListResponse struct {
	Data   []models.AIReport `json:"data"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// ScanAcceptedResponse подтверждает, что сканирование запущено в фоне.
type ScanAcceptedResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}
