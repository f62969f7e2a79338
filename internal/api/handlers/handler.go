// handler.go — основной обработчик API консоли базы знаний.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
	"github.com/arturkryukov/kbconsole/internal/api/middleware"
	"github.com/arturkryukov/kbconsole/internal/auth"
	"github.com/arturkryukov/kbconsole/internal/service"
)

// APIHandler — основной обработчик API консоли.
type APIHandler struct {
	health       *HealthHandler
	account      *service.AccountService
	files        *service.FileService
	uploads      *service.UploadService
	integrations *service.IntegrationService
	sessions     *auth.SessionManager
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	account *service.AccountService,
	files *service.FileService,
	uploads *service.UploadService,
	integrations *service.IntegrationService,
	sessions *auth.SessionManager,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		account:      account,
		files:        files,
		uploads:      uploads,
		integrations: integrations,
		sessions:     sessions,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON разбирает JSON-тело запроса в dst.
// При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректное JSON-тело запроса: "+err.Error())
		return false
	}
	return true
}

// requireSession извлекает сессию из контекста.
// Отсутствие сессии после SessionAuth — ошибка маршрутизации, отвечаем 401.
func requireSession(w http.ResponseWriter, r *http.Request) *auth.SessionData {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "Требуется вход в систему")
	}
	return session
}

// writeServiceError маппит ошибки сервисного слоя на HTTP-ответы.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrWebhookUnavailable):
		apierrors.PipelineUnavailable(w, err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		apierrors.ValidationError(w, err.Error())
	default:
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
