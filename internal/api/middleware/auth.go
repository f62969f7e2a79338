// auth.go — session middleware для аутентификации API консоли.
// Извлекает сессию из зашифрованного cookie и помещает её в контекст
// запроса. API отвечает 401 в формате JSON; redirect на страницу входа —
// забота SPA.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
	"github.com/arturkryukov/kbconsole/internal/auth"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeySession — данные сессии в контексте запроса.
	ContextKeySession contextKey = "session"
)

// SessionAuth — middleware проверки сессии по зашифрованному cookie.
type SessionAuth struct {
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewSessionAuth создаёт middleware проверки сессии.
func NewSessionAuth(sessionManager *auth.SessionManager, logger *slog.Logger) *SessionAuth {
	return &SessionAuth{
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "session_auth")),
	}
}

// Middleware возвращает HTTP middleware для проверки сессии.
// Применяется ко всем маршрутам /api/v1/*, кроме /api/v1/auth/signup,
// /api/v1/auth/signin и callback-ов конвейера.
func (sa *SessionAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sa.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				sa.logger.Debug("Ошибка чтения сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				// Повреждённый cookie — очищаем
				sa.sessionManager.ClearSessionCookie(w)
				apierrors.Unauthorized(w, "Требуется вход в систему")
				return
			}

			if session == nil {
				apierrors.Unauthorized(w, "Требуется вход в систему")
				return
			}

			if session.IsExpired() {
				sa.sessionManager.ClearSessionCookie(w)
				apierrors.Unauthorized(w, "Сессия истекла, войдите снова")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil, если запрос не прошёл через SessionAuth.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeySession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}
