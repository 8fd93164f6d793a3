package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/ai"
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/repository"
	"github.com/ignatzorin/moderation-backend/internal/validation"
)

var ErrInvalidModerationTarget = errors.New("невалидный тип контента для модерации")

// Outcome — итог одной проверки контента.
type Outcome string

const (
	OutcomeSkippedUnconfigured Outcome = "skipped_unconfigured"
	OutcomeSkippedHumanReport  Outcome = "skipped_human_report"
	OutcomeSkippedPending      Outcome = "skipped_pending_report"
	OutcomeSkippedQuota        Outcome = "skipped_quota"
	OutcomeSkippedError        Outcome = "skipped_error"
	OutcomeClean               Outcome = "clean"
	OutcomeReportCreated       Outcome = "report_created"
)

// AIReportStore — операции хранилища отчётов, нужные пайплайну.
type AIReportStore interface {
	CountCreatedToday(ctx context.Context) (int, error)
	HasPendingForTarget(ctx context.Context, targetType string, targetID int64) (bool, error)
	CreateWithinQuota(ctx context.Context, report *models.AIReport, dailyQuota int) error
}

// HumanReportStore — проверка существования жалоб, поданных людьми.
type HumanReportStore interface {
	ExistsForReportedUser(ctx context.Context, targetType string, reportedUserID int64) (bool, error)
}

// CandidateStore — выборка контента для пакетной проверки.
type CandidateStore interface {
	SampleProfiles(ctx context.Context, limit int) ([]models.ProfileRow, error)
	SampleMissions(ctx context.Context, limit int) ([]models.MissionRow, error)
	MissionOwnerUserID(ctx context.Context, missionID int64) (int64, error)
}

// Classifier — клиент внешних моделей классификации.
type Classifier interface {
	Configured() bool
	AnalyzeText(ctx context.Context, text string) *ai.Verdict
}

// ReportPublisher получает только что созданные отчёты (например, для
// отправки подключённым админам по WebSocket).
type ReportPublisher interface {
	PublishReport(report *models.AIReport)
}

// ModerationConfig — параметры пайплайна модерации.
type ModerationConfig struct {
	DailyQuota    int
	ModelVersion  string
	SampleSize    int
	MinTextLength int
}

// ModerationService координирует автоматическую модерацию: решает, какой
// контент сканировать, и превращает вердикты классификаторов в AI отчёты.
type ModerationService struct {
	aiReports    AIReportStore
	humanReports HumanReportStore
	candidates   CandidateStore
	classifier   Classifier
	publisher    ReportPublisher
	cfg          ModerationConfig
	rng          *rand.Rand
}

// NewModerationService создаёт сервис модерации.
func NewModerationService(
	aiReports AIReportStore,
	humanReports HumanReportStore,
	candidates CandidateStore,
	classifier Classifier,
	cfg ModerationConfig,
) *ModerationService {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 500
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 10
	}
	return &ModerationService{
		aiReports:    aiReports,
		humanReports: humanReports,
		candidates:   candidates,
		classifier:   classifier,
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetPublisher устанавливает получателя созданных отчётов.
func (s *ModerationService) SetPublisher(p ReportPublisher) {
	s.publisher = p
}

// SetRand подменяет источник случайности (для детерминированных тестов).
func (s *ModerationService) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// ModerateContent — проверка одного элемента контента: дедупликация по
// жалобам людей и PENDING отчётам, квота, классификация, сохранение.
// Наружу выходят только ошибки запроса квоты и невалидных аргументов,
// всё остальное деградирует до «отчёт не создан» с записью в лог.
func (s *ModerationService) ModerateContent(ctx context.Context, targetType string, targetID, authorID int64, text string) (Outcome, error) {
	if _, ok := models.ValidTargets[targetType]; !ok {
		return OutcomeSkippedError, ErrInvalidModerationTarget
	}

	if !s.classifier.Configured() {
		return OutcomeSkippedUnconfigured, nil
	}

	text = validation.NormalizeText(text)

	reportedUserID, outcome := s.resolveReportedUser(ctx, targetType, targetID, authorID)
	if outcome != "" {
		return outcome, nil
	}

	if skip := s.hasHumanReport(ctx, targetType, reportedUserID); skip != "" {
		return skip, nil
	}

	pending, err := s.aiReports.HasPendingForTarget(ctx, targetType, targetID)
	if err != nil {
		s.logError("модерация: проверка PENDING отчёта не удалась", err, targetType, targetID)
		return OutcomeSkippedError, nil
	}
	if pending {
		return OutcomeSkippedPending, nil
	}

	// Дешёвая предварительная проверка квоты, чтобы не жечь вызовы моделей.
	// Окончательное слово за атомарной проверкой внутри CreateWithinQuota.
	count, err := s.aiReports.CountCreatedToday(ctx)
	if err != nil {
		return OutcomeSkippedError, err
	}
	if count >= s.cfg.DailyQuota {
		s.logQuotaReached(count)
		return OutcomeSkippedQuota, nil
	}

	verdict := s.classifier.AnalyzeText(ctx, text)
	if verdict == nil {
		return OutcomeClean, nil
	}

	report := &models.AIReport{
		TargetType:      targetType,
		TargetID:        targetID,
		ReportedUserID:  reportedUserID,
		Classification:  verdict.Classification,
		ConfidenceScore: verdict.ConfidenceScore,
		ModelVersion:    s.cfg.ModelVersion,
	}

	err = s.aiReports.CreateWithinQuota(ctx, report, s.cfg.DailyQuota)
	switch {
	case errors.Is(err, repository.ErrQuotaExceeded):
		s.logQuotaReached(s.cfg.DailyQuota)
		return OutcomeSkippedQuota, nil
	case errors.Is(err, repository.ErrDuplicatePending):
		// Конкурентная проверка успела первой: это не ошибка, а дедупликация.
		return OutcomeSkippedPending, nil
	case err != nil:
		s.logError("модерация: не удалось сохранить отчёт", err, targetType, targetID)
		return OutcomeSkippedError, nil
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"target_type":    targetType,
			"target_id":      targetID,
			"classification": report.Classification,
		}).Info("модерация: создан AI отчёт")
	}

	if s.publisher != nil {
		s.publisher.PublishReport(report)
	}

	return OutcomeReportCreated, nil
}

// RunBatchScan выполняет один полный цикл пакетной проверки: выборка
// кандидатов, общее перемешивание, последовательная обработка с повторной
// проверкой квоты перед каждым элементом. Возвращает число обработанных
// (не обязательно помеченных) элементов.
func (s *ModerationService) RunBatchScan(ctx context.Context) (int, error) {
	if !s.classifier.Configured() {
		if logger.Log != nil {
			logger.Log.Warn("модерация: URL моделей не настроены, пакетная проверка пропущена")
		}
		return 0, nil
	}

	runID := uuid.NewString()
	log := s.runLogger(runID)
	if log != nil {
		log.Info("модерация: старт пакетной проверки")
	}

	candidates, err := s.collectCandidates(ctx)
	if err != nil {
		return 0, err
	}

	// Глобальное перемешивание: порядок обработки не должен
	// коррелировать с типом контента.
	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	processed := 0
	for _, cand := range candidates {
		// Квота перепроверяется перед каждым элементом: остаток пакета
		// бросаем сразу, как только лимит выбран. Недообработанные
		// кандидаты попадут в выборку следующего цикла.
		count, err := s.aiReports.CountCreatedToday(ctx)
		if err != nil {
			return processed, err
		}
		if count >= s.cfg.DailyQuota {
			s.logQuotaReached(count)
			break
		}

		if _, err := s.ModerateContent(ctx, cand.TargetType, cand.TargetID, cand.AuthorID, cand.Text); err != nil {
			// Наружу из ModerateContent выходят только фатальные для
			// цикла ошибки (запрос квоты, аргументы).
			return processed, err
		}
		processed++
	}

	if log != nil {
		log.WithField("processed", processed).Info("модерация: пакетная проверка завершена")
	}
	return processed, nil
}

// collectCandidates собирает кандидатов обоих типов и отсекает слишком
// короткие тексты — в них классификаторам нечего искать.
func (s *ModerationService) collectCandidates(ctx context.Context) ([]models.Candidate, error) {
	profiles, err := s.candidates.SampleProfiles(ctx, s.cfg.SampleSize)
	if err != nil {
		return nil, err
	}
	missions, err := s.candidates.SampleMissions(ctx, s.cfg.SampleSize)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(profiles)+len(missions))

	for _, p := range profiles {
		text := buildProfileText(p)
		if !s.textLongEnough(text) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			TargetType: models.TargetProfile,
			TargetID:   p.UserID,
			AuthorID:   p.UserID,
			Text:       text,
		})
	}

	for _, m := range missions {
		text := m.Name + " " + m.Description
		if !s.textLongEnough(text) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			TargetType: models.TargetMission,
			TargetID:   m.MissionID,
			AuthorID:   m.OwnerUserID,
			Text:       text,
		})
	}

	return candidates, nil
}

// resolveReportedUser определяет пользователя, на которого ляжет отчёт.
// Для профиля это сам пользователь, для миссии — пользователь
// ассоциации-владельца (при необходимости добирается из хранилища).
func (s *ModerationService) resolveReportedUser(ctx context.Context, targetType string, targetID, authorID int64) (int64, Outcome) {
	if targetType == models.TargetProfile {
		return targetID, ""
	}
	if authorID != 0 {
		return authorID, ""
	}
	if targetType == models.TargetMission {
		ownerID, err := s.candidates.MissionOwnerUserID(ctx, targetID)
		if err != nil {
			s.logError("модерация: не удалось определить владельца миссии", err, targetType, targetID)
			return 0, OutcomeSkippedError
		}
		return ownerID, ""
	}
	return 0, ""
}

// hasHumanReport реализует проверку жалоб людей. Проверяются только PROFILE
// и MISSION; для MESSAGE/OTHER жалобы не ищутся — сознательное ограничение,
// унаследованное от правил платформы.
func (s *ModerationService) hasHumanReport(ctx context.Context, targetType string, reportedUserID int64) Outcome {
	if targetType != models.TargetProfile && targetType != models.TargetMission {
		return ""
	}
	exists, err := s.humanReports.ExistsForReportedUser(ctx, targetType, reportedUserID)
	if err != nil {
		s.logError("модерация: проверка жалоб не удалась", err, targetType, reportedUserID)
		return OutcomeSkippedError
	}
	if exists {
		return OutcomeSkippedHumanReport
	}
	return ""
}

func (s *ModerationService) textLongEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > s.cfg.MinTextLength
}

// buildProfileText собирает текст профиля: у волонтёра это bio + skills,
// у ассоциации — description + name.
func buildProfileText(p models.ProfileRow) string {
	if p.HasVolunteer {
		return deref(p.Bio) + " " + deref(p.Skills)
	}
	if p.HasAssociation {
		return deref(p.AssocDesc) + " " + deref(p.AssocName)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *ModerationService) runLogger(runID string) *logrus.Entry {
	if logger.Log == nil {
		return nil
	}
	return logger.Log.WithField("scan_run_id", runID)
}

func (s *ModerationService) logQuotaReached(count int) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"count": count,
			"quota": s.cfg.DailyQuota,
		}).Info("модерация: дневная квота исчерпана")
	}
}

func (s *ModerationService) logError(msg string, err error, targetType string, targetID int64) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"target_type": targetType,
			"target_id":   targetID,
			"error":       err.Error(),
		}).Error(msg)
	}
}
