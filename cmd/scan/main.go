package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignatzorin/moderation-backend/internal/ai"
	"github.com/ignatzorin/moderation-backend/internal/config"
	"github.com/ignatzorin/moderation-backend/internal/db"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/repository"
	"github.com/ignatzorin/moderation-backend/internal/service"
)

// Одноразовый запуск цикла сканирования, предназначен для cron.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("scan: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init("info")
	logger.SetTextFormatter()

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("scan: ошибка подключения к базе: %v", err)
	}
	defer dbConn.Close()

	aiClient := ai.NewClient(cfg.AISpamModelURL, cfg.AIToxicityModelURL, cfg.AIServiceToken, cfg.AITimeout)

	moderationService := service.NewModerationService(
		repository.NewAIReportRepository(dbConn),
		repository.NewReportRepository(dbConn),
		repository.NewCandidateRepository(dbConn),
		aiClient,
		service.ModerationConfig{
			DailyQuota:    cfg.AIDailyQuota,
			ModelVersion:  cfg.AIModelVersion,
			SampleSize:    cfg.AIScanSampleSize,
			MinTextLength: cfg.AIMinTextLength,
		},
	)

	processed, err := moderationService.RunBatchScan(ctx)
	if err != nil {
		logger.Log.Errorf("Сканирование прервано после %d элементов: %v", processed, err)
		os.Exit(1)
	}

	logger.Log.Infof("Сканирование завершено, обработано элементов: %d", processed)
}
