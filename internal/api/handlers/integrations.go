// integrations.go — обработчики OAuth-интеграций.
// GET  /oauth/{provider}/connect — redirect на authorize URL провайдера
// GET  /oauth/callback           — возврат кода, обмен и redirect на /
// POST /api/v1/integrations/{provider}/disconnect — отключение
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ConnectIntegration перенаправляет на authorize URL OAuth-провайдера.
// Требует активной сессии: callback должен знать, чей профиль обновлять.
func (h *APIHandler) ConnectIntegration(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	provider := chi.URLParam(r, "provider")
	authorizeURL, err := h.integrations.AuthorizeURL(provider)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// OAuthCallback принимает возврат кода от провайдера.
// Провайдер определяется по state; после обмена пользователь
// возвращается на главную с чистым URL. Ошибки обмена не роняют
// callback — пользователь узнаёт о них из toast-уведомления.
func (h *APIHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	provider := h.integrations.ResolveProvider(state)

	if err := h.integrations.CompleteConnection(r.Context(), session.UserID, session.Email, provider, code); err != nil {
		h.logger.Warn("Подключение интеграции не удалось",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// DisconnectIntegration сбрасывает флаг интеграции провайдера.
func (h *APIHandler) DisconnectIntegration(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	provider := chi.URLParam(r, "provider")
	if err := h.integrations.Disconnect(r.Context(), session.UserID, provider); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
