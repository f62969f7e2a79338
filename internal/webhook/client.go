// Пакет webhook — HTTP-клиент внешнего конвейера обработки базы знаний.
// Операции: приём документов и аудио (multipart), обмен OAuth-кода на токен
// (JSON), запуск обновления базы знаний. Интерпретируется только HTTP-статус
// ответа; тело читается лишь для диагностики ошибок.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Endpoints — адреса webhook-ов конвейера.
type Endpoints struct {
	// DocumentURL — приём документов и транскриптов
	DocumentURL string
	// AudioURL — приём аудиозаписей
	AudioURL string
	// GitHubExchangeURL — обмен OAuth-кода GitHub
	GitHubExchangeURL string
	// SlackExchangeURL — обмен OAuth-кода Slack
	SlackExchangeURL string
	// RefreshURL — запуск обновления базы знаний (пустой — недоступно)
	RefreshURL string
}

// Submission — полезная нагрузка приёма файла конвейером.
type Submission struct {
	// Filename — имя файла в multipart-части
	Filename string
	// ContentType — MIME-тип файла
	ContentType string
	// Content — содержимое файла
	Content []byte
	// Email — email владельца
	Email string
	// VideoURL — ссылка на исходное видео (для транскриптов, опционально)
	VideoURL string
}

// ExchangeRequest — запрос обмена OAuth-кода на токен.
type ExchangeRequest struct {
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Email        string `json:"email"`
	GrantType    string `json:"grant_type"`
}

// remoteError — тело ошибки коллаборатора. Разные webhook-и отвечают
// в разных форматах ({"message"} либо {"error_description"}/{"error"}),
// здесь они сводятся к одному виду.
type remoteError struct {
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Client — HTTP-клиент webhook-ов конвейера.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент webhook-ов с заданным таймаутом (KB_WEBHOOK_TIMEOUT).
func New(endpoints Endpoints, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "webhook")),
	}
}

// SubmitDocument отправляет документ или транскрипт конвейеру.
// POST multipart {file, email, video_url?} на DocumentURL.
func (c *Client) SubmitDocument(ctx context.Context, sub Submission) error {
	return c.submit(ctx, c.endpoints.DocumentURL, sub)
}

// SubmitAudio отправляет аудиозапись конвейеру.
// POST multipart {file, email} на AudioURL.
func (c *Client) SubmitAudio(ctx context.Context, sub Submission) error {
	return c.submit(ctx, c.endpoints.AudioURL, sub)
}

// submit собирает multipart-тело и выполняет POST.
func (c *Client) submit(ctx context.Context, url string, sub Submission) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", sub.Filename)
	if err != nil {
		return fmt.Errorf("создание multipart-части file: %w", err)
	}
	if _, err := part.Write(sub.Content); err != nil {
		return fmt.Errorf("запись содержимого файла: %w", err)
	}
	if err := mw.WriteField("email", sub.Email); err != nil {
		return fmt.Errorf("запись поля email: %w", err)
	}
	if sub.VideoURL != "" {
		if err := mw.WriteField("video_url", sub.VideoURL); err != nil {
			return fmt.Errorf("запись поля video_url: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("завершение multipart-тела: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("создание запроса приёма файла: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос приёма файла к %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError("приём файла", url, resp)
	}

	c.logger.Debug("Файл передан конвейеру",
		slog.String("url", url),
		slog.String("filename", sub.Filename),
	)
	return nil
}

// ExchangeCode обменивает OAuth-код провайдера на токен через webhook.
// provider выбирает endpoint: slack — Slack, иначе GitHub.
func (c *Client) ExchangeCode(ctx context.Context, provider string, exch ExchangeRequest) error {
	url := c.endpoints.GitHubExchangeURL
	if provider == "slack" {
		url = c.endpoints.SlackExchangeURL
	}

	body, err := json.Marshal(exch)
	if err != nil {
		return fmt.Errorf("сериализация запроса обмена кода: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса обмена кода: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос обмена кода %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError("обмен кода "+provider, url, resp)
	}

	c.logger.Info("OAuth-код обменян на токен",
		slog.String("provider", provider),
	)
	return nil
}

// TriggerRefresh запускает обновление базы знаний.
// Возвращает ошибку, если refresh-webhook не сконфигурирован.
func (c *Client) TriggerRefresh(ctx context.Context, email string) error {
	if c.endpoints.RefreshURL == "" {
		return fmt.Errorf("webhook обновления базы знаний не сконфигурирован")
	}

	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("сериализация запроса обновления: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RefreshURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса обновления: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос обновления базы знаний: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError("обновление базы знаний", c.endpoints.RefreshURL, resp)
	}
	return nil
}

// statusError формирует ошибку по не-2xx ответу webhook-а,
// вытаскивая человекочитаемое сообщение из тела, если оно есть.
func (c *Client) statusError(op, url string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var re remoteError
	msg := ""
	if err := json.Unmarshal(body, &re); err == nil {
		switch {
		case re.ErrorDescription != "":
			msg = re.ErrorDescription
		case re.Message != "":
			msg = re.Message
		case re.Error != "":
			msg = re.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		return fmt.Errorf("%s: %s вернул статус %d", op, url, resp.StatusCode)
	}
	return fmt.Errorf("%s: %s вернул статус %d: %s", op, url, resp.StatusCode, msg)
}
