// settings.go — обработчики настроек пользователя.
// GET  /api/v1/settings          — профиль и состояние интеграций
// POST /api/v1/settings/password — смена пароля
package handlers

import (
	"net/http"
	"time"
)

// settingsResponse — профиль пользователя с флагами интеграций.
type settingsResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FullName        string `json:"full_name"`
	AvatarURL       string `json:"avatar_url"`
	GitHubConnected bool   `json:"github_connected"`
	SlackConnected  bool   `json:"slack_connected"`
	UpdatedAt       string `json:"updated_at"`
}

// changePasswordRequest — тело запроса смены пароля.
type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// GetSettings возвращает профиль текущего пользователя.
// При отсутствии профиля флаги интеграций считаются выключенными.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	resp := settingsResponse{
		ID:       session.UserID,
		Email:    session.Email,
		FullName: session.FullName,
	}

	if p := h.account.GetProfile(r.Context(), session.UserID); p != nil {
		resp.Email = p.Email
		resp.FullName = p.FullName
		resp.AvatarURL = p.AvatarURL
		resp.GitHubConnected = p.GitHubConnected
		resp.SlackConnected = p.SlackConnected
		resp.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChangePassword заменяет пароль текущего пользователя.
// Активные сессии (stateless cookies) продолжают действовать до TTL.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.account.ChangePassword(r.Context(), session.UserID, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
