package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/moderation-backend/internal/ai"
	"github.com/ignatzorin/moderation-backend/internal/config"
	"github.com/ignatzorin/moderation-backend/internal/db"
	httpHandlers "github.com/ignatzorin/moderation-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/moderation-backend/internal/http/router"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/repository"
	"github.com/ignatzorin/moderation-backend/internal/service"
	"github.com/ignatzorin/moderation-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// Репозитории.
	aiReportRepo := repository.NewAIReportRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	candidateRepo := repository.NewCandidateRepository(dbConn)

	// Клиент классификаторов.
	aiClient := ai.NewClient(cfg.AISpamModelURL, cfg.AIToxicityModelURL, cfg.AIServiceToken, cfg.AITimeout)
	if !aiClient.Configured() {
		logger.Log.Warn("AI модерация выключена: не заданы URL моделей или токен")
	}

	// Сервисы.
	moderationService := service.NewModerationService(aiReportRepo, reportRepo, candidateRepo, aiClient, service.ModerationConfig{
		DailyQuota:    cfg.AIDailyQuota,
		ModelVersion:  cfg.AIModelVersion,
		SampleSize:    cfg.AIScanSampleSize,
		MinTextLength: cfg.AIMinTextLength,
	})
	aiReportService := service.NewAIReportService(aiReportRepo)

	// Вебсокеты: лента свежих отчётов для админов.
	hub := ws.NewHub(ctx)
	go hub.Run()
	moderationService.SetPublisher(ws.NewReportFeed(hub))

	// HTTP хэндлеры.
	aiReportHandler := httpHandlers.NewAIReportHandler(aiReportService, moderationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, aiReportHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
