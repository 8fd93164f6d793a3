package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/moderation-backend/internal/models"
)

// newModelServer поднимает тестовый сервер, отвечающий за одну модель.
func newModelServer(t *testing.T, response string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ожидался POST, получен %s", r.Method)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestAnalyzeText_SpamDetected(t *testing.T) {
	spam := newModelServer(t, `[{"label": "LABEL_1", "score": 0.99}]`, http.StatusOK)
	defer spam.Close()
	tox := newModelServer(t, `[{"label": "LABEL_0", "score": 0.87}]`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	verdict := client.AnalyzeText(context.Background(), "This is a spam message.")

	require.NotNil(t, verdict)
	assert.Equal(t, models.ClassificationSpamLike, verdict.Classification)
	require.NotNil(t, verdict.ConfidenceScore)
	assert.InDelta(t, 0.99, *verdict.ConfidenceScore, 1e-9)
}

func TestAnalyzeText_ToxicWithoutScore(t *testing.T) {
	spam := newModelServer(t, `{"label": "LABEL_0", "score": 0.2}`, http.StatusOK)
	defer spam.Close()
	// Модель токсичности отдаёт только бинарную метку, без score.
	tox := newModelServer(t, `{"label": "toxic"}`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	verdict := client.AnalyzeText(context.Background(), "This is a very toxic message.")

	require.NotNil(t, verdict)
	assert.Equal(t, models.ClassificationToxicLanguage, verdict.Classification)
	assert.Nil(t, verdict.ConfidenceScore)
}

func TestAnalyzeText_SpamPriorityOverToxicity(t *testing.T) {
	spam := newModelServer(t, `[{"label": "SPAM", "score": 0.6}]`, http.StatusOK)
	defer spam.Close()
	tox := newModelServer(t, `[{"label": "TOXIC", "score": 0.95}]`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	verdict := client.AnalyzeText(context.Background(), "spam and toxic text")

	// Спам побеждает всегда, даже при меньшем score токсичности.
	require.NotNil(t, verdict)
	assert.Equal(t, models.ClassificationSpamLike, verdict.Classification)
	require.NotNil(t, verdict.ConfidenceScore)
	assert.InDelta(t, 0.6, *verdict.ConfidenceScore, 1e-9)
}

func TestAnalyzeText_CleanContent(t *testing.T) {
	spam := newModelServer(t, `[{"label": "LABEL_0", "score": 0.99}]`, http.StatusOK)
	defer spam.Close()
	tox := newModelServer(t, `[{"label": "LABEL_0", "score": 0.99}]`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	assert.Nil(t, client.AnalyzeText(context.Background(), "perfectly normal text"))
}

func TestAnalyzeText_OneModelDown(t *testing.T) {
	// Спам-модель лежит, токсичность отвечает: её результат не теряется.
	spam := newModelServer(t, `internal error`, http.StatusInternalServerError)
	defer spam.Close()
	tox := newModelServer(t, `[{"label": "toxic", "score": 0.9}]`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	verdict := client.AnalyzeText(context.Background(), "some text")

	require.NotNil(t, verdict)
	assert.Equal(t, models.ClassificationToxicLanguage, verdict.Classification)
}

func TestAnalyzeText_BothModelsDown(t *testing.T) {
	spam := newModelServer(t, `oops`, http.StatusBadGateway)
	defer spam.Close()
	tox := newModelServer(t, `not json at all`, http.StatusOK)
	defer tox.Close()

	client := NewClient(spam.URL, tox.URL, "", 5*time.Second)
	assert.Nil(t, client.AnalyzeText(context.Background(), "some text"))
}

func TestAnalyzeText_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"label": "LABEL_1", "score": 0.99}]`))
	}))
	defer slow.Close()

	client := NewClient(slow.URL, slow.URL, "", 50*time.Millisecond)
	assert.Nil(t, client.AnalyzeText(context.Background(), "anything"))
}

func TestAnalyzeText_NotConfigured(t *testing.T) {
	client := NewClient("", "", "", 5*time.Second)
	assert.False(t, client.Configured())
	assert.Nil(t, client.AnalyzeText(context.Background(), "anything"))
}

func TestAnalyzeText_SendsAuthTokenAndPayload(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		_, _ = w.Write([]byte(`{"label": "LABEL_0"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL, "service-token", 5*time.Second)
	client.AnalyzeText(context.Background(), "check me")

	assert.Equal(t, "Bearer service-token", gotAuth)
	assert.JSONEq(t, `{"inputs": "check me"}`, gotBody)
}

func TestDecodeModelResponse(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	cases := []struct {
		name string
		raw  string
		want *modelResponse
	}{
		{"плоский объект", `{"label": "LABEL_1", "score": 0.9}`, &modelResponse{Label: "LABEL_1", Score: score(0.9)}},
		{"одинарный массив", `[{"label": "spam", "score": 0.5}]`, &modelResponse{Label: "spam", Score: score(0.5)}},
		{"двойной массив", `[[{"label": "toxic", "score": 0.7}]]`, &modelResponse{Label: "toxic", Score: score(0.7)}},
		{"без score", `{"label": "TOXIC"}`, &modelResponse{Label: "TOXIC"}},
		{"пустой массив", `[]`, nil},
		{"пустое тело", ``, nil},
		{"слишком глубокая вложенность", `[[[{"label": "x"}]]]`, nil},
		{"объект без label", `{"score": 0.4}`, nil},
		{"не JSON", `<html>error</html>`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeModelResponse([]byte(tc.raw))
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want.Label, got.Label)
			if tc.want.Score == nil {
				assert.Nil(t, got.Score)
			} else {
				require.NotNil(t, got.Score)
				assert.InDelta(t, *tc.want.Score, *got.Score, 1e-9)
			}
		})
	}
}
