package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/models"
)

// Позитивные метки классификаторов. Модели отдают либо технические
// метки (LABEL_1), либо человекочитаемые, проверяем оба варианта.
var (
	spamLabels = map[string]struct{}{
		"LABEL_1": {},
		"spam":    {},
		"SPAM":    {},
	}
	toxicLabels = map[string]struct{}{
		"LABEL_1": {},
		"toxic":   {},
		"TOXIC":   {},
	}
)

// Verdict — итог слияния ответов двух классификаторов.
// ConfidenceScore равен nil, если модель не вернула score.
type Verdict struct {
	Classification  string
	ConfidenceScore *float64
}

// modelResponse — нормализованный ответ одного классификатора.
type modelResponse struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

// Client вызывает два независимых классификатора (спам и токсичность)
// по HTTP в формате inference API: POST {"inputs": "<text>"}.
type Client struct {
	spamURL     string
	toxicityURL string
	authToken   string
	httpClient  *http.Client
}

// NewClient создаёт клиент классификаторов. Пустой URL означает,
// что соответствующая модель не настроена.
func NewClient(spamURL, toxicityURL, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		spamURL:     spamURL,
		toxicityURL: toxicityURL,
		authToken:   authToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured сообщает, заданы ли оба endpoint'а.
// Без любого из них анализ не запускается.
func (c *Client) Configured() bool {
	return c.spamURL != "" && c.toxicityURL != ""
}

// AnalyzeText отправляет текст обоим классификаторам параллельно и сливает
// результаты с фиксированным приоритетом: спам важнее токсичности.
// Возвращает nil, если контент чистый или классификаторы недоступны —
// сбой сети никогда не превращается в ошибку для вызывающего кода.
func (c *Client) AnalyzeText(ctx context.Context, text string) *Verdict {
	if !c.Configured() {
		if logger.Log != nil {
			logger.Log.Debug("ai: URL моделей не заданы, анализ пропущен")
		}
		return nil
	}

	var (
		wg      sync.WaitGroup
		spamRes *modelResponse
		toxRes  *modelResponse
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		spamRes = c.callModel(ctx, c.spamURL, text)
	}()
	go func() {
		defer wg.Done()
		toxRes = c.callModel(ctx, c.toxicityURL, text)
	}()
	wg.Wait()

	// Приоритет фиксированный: спам побеждает даже когда обе модели
	// пометили контент. Это осознанное правило, а не сравнение score.
	if spamRes != nil {
		if _, ok := spamLabels[spamRes.Label]; ok {
			return &Verdict{
				Classification:  models.ClassificationSpamLike,
				ConfidenceScore: spamRes.Score,
			}
		}
	}

	if toxRes != nil {
		if _, ok := toxicLabels[toxRes.Label]; ok {
			return &Verdict{
				Classification:  models.ClassificationToxicLanguage,
				ConfidenceScore: toxRes.Score,
			}
		}
	}

	return nil
}

// callModel выполняет один POST запрос к модели. Любой сбой (сеть, таймаут,
// не-2xx статус, кривой JSON) логируется и возвращается как nil.
func (c *Client) callModel(ctx context.Context, url, text string) *modelResponse {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		c.logCallError(url, err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.logCallError(url, err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logCallError(url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logCallError(url, fmt.Errorf("код ответа %d", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logCallError(url, err)
		return nil
	}

	result := decodeModelResponse(body)
	if result == nil {
		c.logCallError(url, fmt.Errorf("неожиданный формат ответа: %s", truncate(body, 200)))
	}
	return result
}

// decodeModelResponse принимает ответ inference API в любом из трёх
// встречающихся форматов: {"label": ..., "score": ...}, [{...}] или [[{...}]],
// и извлекает первый объект. Возвращает nil, если пригодного объекта нет.
func decodeModelResponse(raw []byte) *modelResponse {
	for depth := 0; depth < 3; depth++ {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			return nil
		}

		if trimmed[0] == '[' {
			var arr []json.RawMessage
			if err := json.Unmarshal(trimmed, &arr); err != nil || len(arr) == 0 {
				return nil
			}
			raw = arr[0]
			continue
		}

		var res modelResponse
		if err := json.Unmarshal(trimmed, &res); err != nil || res.Label == "" {
			return nil
		}
		return &res
	}
	return nil
}

func (c *Client) logCallError(url string, err error) {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"url":   url,
			"error": err.Error(),
		}).Error("ai: вызов классификатора не удался")
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
