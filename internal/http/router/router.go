package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/moderation-backend/internal/config"
	"github.com/ignatzorin/moderation-backend/internal/http/handlers"
	"github.com/ignatzorin/moderation-backend/internal/http/middleware"
	"github.com/ignatzorin/moderation-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	aiReportHandler *handlers.AIReportHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	// WebSocket авторизуется по query токену внутри хэндлера
	api.GET("/ws", wsHandler.Handle)

	// Админские маршруты
	admin := api.Group("/ai_reports")
	admin.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.AdminOnly())
	{
		admin.GET("", aiReportHandler.ListReports)
		admin.GET("/:id", aiReportHandler.GetReport)
		admin.PATCH("/:id/state", aiReportHandler.UpdateReportState)
		admin.POST("/scan", aiReportHandler.TriggerScan)
		admin.POST("/moderate", aiReportHandler.ModerateContent)
	}

	return r
}
