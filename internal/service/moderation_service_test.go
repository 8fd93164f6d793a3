package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ignatzorin/moderation-backend/internal/ai"
	"github.com/ignatzorin/moderation-backend/internal/models"
	"github.com/ignatzorin/moderation-backend/internal/repository"
)

// mockAIReportStore реализует AIReportStore для тестов, имитируя квоту и
// уникальный индекс по PENDING отчётам.
type mockAIReportStore struct {
	created   []*models.AIReport
	pending   map[string]bool
	countUsed int
	countErr  error
	createErr error
}

func newMockAIReportStore() *mockAIReportStore {
	return &mockAIReportStore{pending: make(map[string]bool)}
}

func targetKey(targetType string, targetID int64) string {
	return fmt.Sprintf("%s:%d", targetType, targetID)
}

func (m *mockAIReportStore) CountCreatedToday(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.countUsed + len(m.created), nil
}

func (m *mockAIReportStore) HasPendingForTarget(ctx context.Context, targetType string, targetID int64) (bool, error) {
	return m.pending[targetKey(targetType, targetID)], nil
}

func (m *mockAIReportStore) CreateWithinQuota(ctx context.Context, report *models.AIReport, dailyQuota int) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.countUsed+len(m.created) >= dailyQuota {
		return repository.ErrQuotaExceeded
	}
	key := targetKey(report.TargetType, report.TargetID)
	if m.pending[key] {
		return repository.ErrDuplicatePending
	}
	report.ID = int64(len(m.created) + 1)
	report.State = models.ReportStatePending
	m.created = append(m.created, report)
	m.pending[key] = true
	return nil
}

// mockHumanReportStore хранит жалобы людей по пользователям.
type mockHumanReportStore struct {
	reported map[string]bool
}

func newMockHumanReportStore() *mockHumanReportStore {
	return &mockHumanReportStore{reported: make(map[string]bool)}
}

func (m *mockHumanReportStore) ExistsForReportedUser(ctx context.Context, targetType string, reportedUserID int64) (bool, error) {
	return m.reported[targetKey(targetType, reportedUserID)], nil
}

// mockCandidateStore отдаёт фиксированные выборки кандидатов.
type mockCandidateStore struct {
	profiles []models.ProfileRow
	missions []models.MissionRow
	owners   map[int64]int64
}

func newMockCandidateStore() *mockCandidateStore {
	return &mockCandidateStore{owners: make(map[int64]int64)}
}

func (m *mockCandidateStore) SampleProfiles(ctx context.Context, limit int) ([]models.ProfileRow, error) {
	return m.profiles, nil
}

func (m *mockCandidateStore) SampleMissions(ctx context.Context, limit int) ([]models.MissionRow, error) {
	return m.missions, nil
}

func (m *mockCandidateStore) MissionOwnerUserID(ctx context.Context, missionID int64) (int64, error) {
	owner, ok := m.owners[missionID]
	if !ok {
		return 0, repository.ErrMissionNotFound
	}
	return owner, nil
}

// stubClassifier возвращает заранее заданные вердикты по тексту.
type stubClassifier struct {
	configured bool
	verdicts   map[string]*ai.Verdict
	calls      int
}

func (s *stubClassifier) Configured() bool {
	return s.configured
}

func (s *stubClassifier) AnalyzeText(ctx context.Context, text string) *ai.Verdict {
	s.calls++
	return s.verdicts[text]
}

type mockPublisher struct {
	published []*models.AIReport
}

func (m *mockPublisher) PublishReport(report *models.AIReport) {
	m.published = append(m.published, report)
}

func spamVerdict(score float64) *ai.Verdict {
	return &ai.Verdict{Classification: models.ClassificationSpamLike, ConfidenceScore: &score}
}

type moderationFixture struct {
	svc        *ModerationService
	aiReports  *mockAIReportStore
	human      *mockHumanReportStore
	candidates *mockCandidateStore
	classifier *stubClassifier
	publisher  *mockPublisher
}

func newModerationFixture(quota int) *moderationFixture {
	f := &moderationFixture{
		aiReports:  newMockAIReportStore(),
		human:      newMockHumanReportStore(),
		candidates: newMockCandidateStore(),
		classifier: &stubClassifier{configured: true, verdicts: make(map[string]*ai.Verdict)},
		publisher:  &mockPublisher{},
	}
	f.svc = NewModerationService(f.aiReports, f.human, f.candidates, f.classifier, ModerationConfig{
		DailyQuota:   quota,
		ModelVersion: "CamemBERT-MultiModel-v1.0",
	})
	f.svc.SetPublisher(f.publisher)
	f.svc.SetRand(rand.New(rand.NewSource(1)))
	return f
}

func TestModerateContent_ReportCreated(t *testing.T) {
	f := newModerationFixture(10)
	f.classifier.verdicts["подозрительный текст профиля"] = spamVerdict(0.97)

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 42, 0, "подозрительный текст профиля")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeReportCreated {
		t.Fatalf("ожидался OutcomeReportCreated, получили %s", outcome)
	}

	if len(f.aiReports.created) != 1 {
		t.Fatalf("ожидался один отчёт, получили %d", len(f.aiReports.created))
	}
	report := f.aiReports.created[0]
	if report.Classification != models.ClassificationSpamLike {
		t.Fatalf("ожидалась классификация SPAM_LIKE, получили %s", report.Classification)
	}
	if report.ReportedUserID != 42 {
		t.Fatalf("для профиля reported_user_id должен совпадать с target_id")
	}
	if report.State != models.ReportStatePending {
		t.Fatalf("новый отчёт должен быть PENDING")
	}
	if report.ModelVersion != "CamemBERT-MultiModel-v1.0" {
		t.Fatalf("версия модели не проставлена")
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("отчёт должен уйти подписчику")
	}
}

func TestModerateContent_CleanContent(t *testing.T) {
	f := newModerationFixture(10)

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "обычный дружелюбный текст")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeClean {
		t.Fatalf("ожидался OutcomeClean, получили %s", outcome)
	}
	if len(f.aiReports.created) != 0 {
		t.Fatalf("для чистого контента отчёт создаваться не должен")
	}
}

func TestModerateContent_InvalidTarget(t *testing.T) {
	f := newModerationFixture(10)

	_, err := f.svc.ModerateContent(context.Background(), "BANNER", 1, 0, "текст")
	if !errors.Is(err, ErrInvalidModerationTarget) {
		t.Fatalf("ожидался ErrInvalidModerationTarget, получили %v", err)
	}
}

func TestModerateContent_Unconfigured(t *testing.T) {
	f := newModerationFixture(10)
	f.classifier.configured = false

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeSkippedUnconfigured {
		t.Fatalf("ожидался OutcomeSkippedUnconfigured, получили %s", outcome)
	}
}

func TestModerateContent_SkipsWhenPendingExists(t *testing.T) {
	f := newModerationFixture(10)
	f.aiReports.pending[targetKey(models.TargetProfile, 7)] = true

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 7, 0, "повторная проверка")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeSkippedPending {
		t.Fatalf("ожидался OutcomeSkippedPending, получили %s", outcome)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("классификатор не должен вызываться при дедупликации")
	}
}

func TestModerateContent_SkipsWhenHumanReportExists(t *testing.T) {
	f := newModerationFixture(10)
	f.human.reported[targetKey(models.TargetProfile, 9)] = true

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 9, 0, "уже обжалованный профиль")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeSkippedHumanReport {
		t.Fatalf("ожидался OutcomeSkippedHumanReport, получили %s", outcome)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("классификатор не должен вызываться при наличии жалобы")
	}
}

func TestModerateContent_QuotaExhausted(t *testing.T) {
	f := newModerationFixture(3)
	f.aiReports.countUsed = 3

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeSkippedQuota {
		t.Fatalf("ожидался OutcomeSkippedQuota, получили %s", outcome)
	}
	if f.classifier.calls != 0 {
		t.Fatalf("при исчерпанной квоте вызовы моделей не допускаются")
	}
}

func TestModerateContent_ZeroQuota(t *testing.T) {
	f := newModerationFixture(0)
	f.classifier.verdicts["текст"] = spamVerdict(0.9)

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeSkippedQuota {
		t.Fatalf("нулевая квота должна блокировать создание отчётов, получили %s", outcome)
	}
	if len(f.aiReports.created) != 0 {
		t.Fatalf("при нулевой квоте отчёты не создаются")
	}
}

func TestModerateContent_QuotaQueryErrorPropagates(t *testing.T) {
	f := newModerationFixture(10)
	f.aiReports.countErr = errors.New("connection refused")

	_, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err == nil {
		t.Fatalf("ошибка запроса квоты должна выходить наружу")
	}
}

func TestModerateContent_DuplicatePendingRace(t *testing.T) {
	f := newModerationFixture(10)
	f.classifier.verdicts["текст"] = spamVerdict(0.9)
	f.aiReports.createErr = repository.ErrDuplicatePending

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err != nil {
		t.Fatalf("гонка по PENDING отчёту не должна быть ошибкой: %v", err)
	}
	if outcome != OutcomeSkippedPending {
		t.Fatalf("ожидался OutcomeSkippedPending, получили %s", outcome)
	}
}

func TestModerateContent_PersistErrorDegrades(t *testing.T) {
	f := newModerationFixture(10)
	f.classifier.verdicts["текст"] = spamVerdict(0.9)
	f.aiReports.createErr = errors.New("disk full")

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetProfile, 1, 0, "текст")
	if err != nil {
		t.Fatalf("ошибка сохранения деградирует до пропуска, а не ошибки: %v", err)
	}
	if outcome != OutcomeSkippedError {
		t.Fatalf("ожидался OutcomeSkippedError, получили %s", outcome)
	}
}

func TestModerateContent_MissionOwnerResolved(t *testing.T) {
	f := newModerationFixture(10)
	f.candidates.owners[55] = 77
	f.classifier.verdicts["мошенническая миссия"] = spamVerdict(0.95)

	outcome, err := f.svc.ModerateContent(context.Background(), models.TargetMission, 55, 0, "мошенническая миссия")
	if err != nil {
		t.Fatalf("ModerateContent вернул ошибку: %v", err)
	}
	if outcome != OutcomeReportCreated {
		t.Fatalf("ожидался OutcomeReportCreated, получили %s", outcome)
	}
	if f.aiReports.created[0].ReportedUserID != 77 {
		t.Fatalf("отчёт по миссии должен указывать на владельца ассоциации")
	}
}

func strPtr(s string) *string { return &s }

func TestRunBatchScan_ProcessesBothContentTypes(t *testing.T) {
	f := newModerationFixture(100)
	f.candidates.profiles = []models.ProfileRow{
		{UserID: 1, HasVolunteer: true, Bio: strPtr("достаточно длинное описание волонтёра"), Skills: strPtr("go, sql")},
		{UserID: 2, HasVolunteer: true, Bio: strPtr("коротко")}, // отсекается по длине
	}
	f.candidates.missions = []models.MissionRow{
		{MissionID: 10, OwnerUserID: 3, Name: "Уборка парка", Description: "собираем волонтёров на субботник"},
	}

	processed, err := f.svc.RunBatchScan(context.Background())
	if err != nil {
		t.Fatalf("RunBatchScan вернул ошибку: %v", err)
	}
	if processed != 2 {
		t.Fatalf("ожидались два обработанных кандидата, получили %d", processed)
	}
	if f.classifier.calls != 2 {
		t.Fatalf("классификатор должен вызываться по разу на кандидата, вызовов: %d", f.classifier.calls)
	}
}

func TestRunBatchScan_StopsAtQuota(t *testing.T) {
	f := newModerationFixture(1)
	for i := int64(1); i <= 5; i++ {
		text := fmt.Sprintf("подозрительный профиль номер %d", i)
		f.candidates.profiles = append(f.candidates.profiles, models.ProfileRow{
			UserID: i, HasVolunteer: true, Bio: strPtr(text),
		})
		f.classifier.verdicts[text] = spamVerdict(0.9)
	}

	processed, err := f.svc.RunBatchScan(context.Background())
	if err != nil {
		t.Fatalf("RunBatchScan вернул ошибку: %v", err)
	}
	if len(f.aiReports.created) != 1 {
		t.Fatalf("квота 1 допускает ровно один отчёт, получили %d", len(f.aiReports.created))
	}
	if processed >= 5 {
		t.Fatalf("после исчерпания квоты остаток пакета должен быть брошен")
	}
}

func TestRunBatchScan_Unconfigured(t *testing.T) {
	f := newModerationFixture(10)
	f.classifier.configured = false
	f.candidates.profiles = []models.ProfileRow{
		{UserID: 1, HasVolunteer: true, Bio: strPtr("достаточно длинное описание")},
	}

	processed, err := f.svc.RunBatchScan(context.Background())
	if err != nil {
		t.Fatalf("RunBatchScan вернул ошибку: %v", err)
	}
	if processed != 0 {
		t.Fatalf("без настроенных моделей пакет не обрабатывается")
	}
}

func TestRunBatchScan_QuotaQueryErrorFatal(t *testing.T) {
	f := newModerationFixture(10)
	f.candidates.profiles = []models.ProfileRow{
		{UserID: 1, HasVolunteer: true, Bio: strPtr("достаточно длинное описание")},
	}
	f.aiReports.countErr = errors.New("база недоступна")

	_, err := f.svc.RunBatchScan(context.Background())
	if err == nil {
		t.Fatalf("ошибка запроса квоты фатальна для цикла")
	}
}
