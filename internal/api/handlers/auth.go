// auth.go — обработчики аутентификации консоли.
// POST /api/v1/auth/signup — регистрация
// POST /api/v1/auth/signin — вход (устанавливает session cookie)
// POST /api/v1/auth/signout — выход (очищает cookie)
// GET  /api/v1/auth/me — текущий пользователь
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
	"github.com/arturkryukov/kbconsole/internal/domain/model"
)

// signUpRequest — тело запроса регистрации.
type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// signInRequest — тело запроса входа.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse — представление пользователя в ответах API.
type userResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	FullName     string  `json:"full_name"`
	CreatedAt    string  `json:"created_at"`
	LastSignInAt *string `json:"last_sign_in_at,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.LastSignInAt != nil {
		s := u.LastSignInAt.UTC().Format(time.RFC3339)
		resp.LastSignInAt = &s
	}
	return resp
}

// SignUp регистрирует пользователя и сразу открывает сессию.
func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.account.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	session := h.sessions.NewSession(u.ID, u.Email, u.FullName)
	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось создать сессию")
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// SignIn проверяет учётные данные и устанавливает session cookie.
func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.account.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	session := h.sessions.NewSession(u.ID, u.Email, u.FullName)
	if err := h.sessions.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка установки session cookie",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось создать сессию")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// SignOut очищает session cookie. Идемпотентен.
func (h *APIHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// meResponse — пользователь вместе с профилем.
type meResponse struct {
	userResponse
	// Profile — null, если профиль недоступен (консоль работает без него)
	Profile *model.Profile `json:"profile"`
}

// Me возвращает текущего пользователя и его профиль по сессии.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	u, err := h.account.GetUser(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		userResponse: toUserResponse(u),
		Profile:      h.account.GetProfile(r.Context(), session.UserID),
	})
}
