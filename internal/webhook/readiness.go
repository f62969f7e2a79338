// readiness.go — проверка доступности конвейера обработки для readiness probe.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ReadinessChecker — проверка доступности webhook-endpoint конвейера.
type ReadinessChecker struct {
	url    string
	client *http.Client
}

// NewReadinessChecker создаёт checker доступности конвейера.
// url — webhook приёма документов; timeout — таймаут проверки.
func NewReadinessChecker(url string, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// CheckReady проверяет досягаемость webhook-endpoint.
// Любой HTTP-ответ (включая 404/405 на GET) означает, что конвейер
// опубликован; значима только сетевая недоступность.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("конвейер обработки недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "degraded", fmt.Sprintf("конвейер вернул статус %d", resp.StatusCode)
	}
	return "ok", fmt.Sprintf("конвейер доступен, статус %d", resp.StatusCode)
}
