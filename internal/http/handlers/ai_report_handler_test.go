package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAIReportHandler_GetReport_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AIReportHandler{}
	r.GET("/ai_reports/:id", handler.GetReport)

	req, _ := http.NewRequest("GET", "/ai_reports/not-a-number", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIReportHandler_UpdateReportState_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AIReportHandler{}
	r.PATCH("/ai_reports/:id/state", handler.UpdateReportState)

	req, _ := http.NewRequest("PATCH", "/ai_reports/0/state", strings.NewReader(`{"state":"APPROVED"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIReportHandler_UpdateReportState_MissingBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AIReportHandler{}
	r.PATCH("/ai_reports/:id/state", handler.UpdateReportState)

	req, _ := http.NewRequest("PATCH", "/ai_reports/1/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAIReportHandler_ModerateContent_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &AIReportHandler{}
	r.POST("/ai_reports/moderate", handler.ModerateContent)

	req, _ := http.NewRequest("POST", "/ai_reports/moderate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
