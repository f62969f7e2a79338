// pipeline.go — JWT middleware для callback-ов конвейера обработки.
// Конвейер подписывает запросы HS256-токеном с общим секретом
// (KB_PIPELINE_SECRET); сессии браузера здесь не участвуют.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/arturkryukov/kbconsole/internal/api/errors"
)

// PipelineAuth — middleware проверки подписи запросов конвейера.
type PipelineAuth struct {
	secret []byte
	logger *slog.Logger
}

// NewPipelineAuth создаёт middleware для callback-ов конвейера.
func NewPipelineAuth(secret string, logger *slog.Logger) *PipelineAuth {
	return &PipelineAuth{
		secret: []byte(secret),
		logger: logger.With(slog.String("component", "pipeline_auth")),
	}
}

// Middleware возвращает HTTP middleware проверки Bearer-токена конвейера.
// Допускается только HS256 с общим секретом.
func (pa *PipelineAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
				}
				return pa.secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				pa.logger.Warn("Невалидный токен конвейера",
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
