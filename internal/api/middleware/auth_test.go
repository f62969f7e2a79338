// auth_test.go — тесты session middleware и middleware конвейера.
package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arturkryukov/kbconsole/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSessionManager создаёт менеджер сессий для тестов.
func newSessionManager(t *testing.T, ttl time.Duration) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-secret-key", ttl, false)
	if err != nil {
		t.Fatalf("создание менеджера сессий: %v", err)
	}
	return sm
}

// echoSessionHandler возвращает user_id из сессии в контексте.
func echoSessionHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			t.Error("сессия отсутствует в контексте")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(session.UserID))
	})
}

// TestSessionAuthMiddleware проверяет проверку сессии по cookie.
func TestSessionAuthMiddleware(t *testing.T) {
	t.Run("валидная сессия проходит", func(t *testing.T) {
		sm := newSessionManager(t, time.Hour)
		handler := NewSessionAuth(sm, testLogger()).Middleware()(echoSessionHandler(t))

		rec := httptest.NewRecorder()
		if err := sm.SetSessionCookie(rec, sm.NewSession("user-1", "user@example.com", "User")); err != nil {
			t.Fatalf("установка cookie: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.AddCookie(rec.Result().Cookies()[0])

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, ожидалось 200", w.Code)
		}
		if w.Body.String() != "user-1" {
			t.Errorf("user_id из контекста = %q, ожидалось user-1", w.Body.String())
		}
	})

	t.Run("без cookie — 401 в формате API", func(t *testing.T) {
		sm := newSessionManager(t, time.Hour)
		handler := NewSessionAuth(sm, testLogger()).Middleware()(echoSessionHandler(t))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, ожидалось 401", w.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("разбор тела ошибки: %v", err)
		}
		if body.Error.Code != "UNAUTHORIZED" {
			t.Errorf("code = %q, ожидалось UNAUTHORIZED", body.Error.Code)
		}
	})

	t.Run("повреждённый cookie — 401 и очистка", func(t *testing.T) {
		sm := newSessionManager(t, time.Hour)
		handler := NewSessionAuth(sm, testLogger()).Middleware()(echoSessionHandler(t))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
		cleared := false
		for _, c := range w.Result().Cookies() {
			if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("повреждённый cookie не очищен")
		}
	})

	t.Run("истёкшая сессия — 401", func(t *testing.T) {
		sm := newSessionManager(t, -time.Minute)
		handler := NewSessionAuth(sm, testLogger()).Middleware()(echoSessionHandler(t))

		rec := httptest.NewRecorder()
		if err := sm.SetSessionCookie(rec, sm.NewSession("user-1", "user@example.com", "User")); err != nil {
			t.Fatalf("установка cookie: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.AddCookie(&http.Cookie{
			Name:  auth.SessionCookieName,
			Value: rec.Result().Cookies()[0].Value,
		})

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
	})
}

// pipelineToken подписывает HS256-токен для тестов callback-ов.
func pipelineToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "kb-pipeline",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("подпись токена: %v", err)
	}
	return signed
}

// TestPipelineAuthMiddleware проверяет проверку подписи конвейера.
func TestPipelineAuthMiddleware(t *testing.T) {
	const secret = "pipeline-secret"

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewPipelineAuth(secret, testLogger()).Middleware()(okHandler)

	t.Run("валидный токен проходит", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/files/x/status", nil)
		req.Header.Set("Authorization", "Bearer "+pipelineToken(t, secret, time.Minute))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, ожидалось 200", w.Code)
		}
	})

	t.Run("без заголовка — 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/files/x/status", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
	})

	t.Run("чужой секрет — 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/files/x/status", nil)
		req.Header.Set("Authorization", "Bearer "+pipelineToken(t, "other-secret", time.Minute))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
	})

	t.Run("просроченный токен — 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/files/x/status", nil)
		req.Header.Set("Authorization", "Bearer "+pipelineToken(t, secret, -time.Minute))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
	})

	t.Run("не Bearer — 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/files/x/status", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, ожидалось 401", w.Code)
		}
	})
}

// TestNormalizePath проверяет нормализацию путей для метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/v1/files", "/api/v1/files"},
		{"/api/v1/files/a1b2c3d4-e5f6-7890-abcd-ef1234567890", "/api/v1/files/{id}"},
		{"/api/v1/pipeline/files/a1b2c3d4-e5f6-7890-abcd-ef1234567890/status", "/api/v1/pipeline/files/{id}/status"},
		{"/oauth/github/connect", "/oauth/{provider}/connect"},
		{"/oauth/slack/connect", "/oauth/{provider}/connect"},
		{"/oauth/callback", "/oauth/callback"},
		{"/api/v1/integrations/github/disconnect", "/api/v1/integrations/{provider}/disconnect"},
		{"/health/live", "/health/live"},
		{"/metrics", "/metrics"},
		{"/api/v1/events", "/api/v1/events"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.expected)
		}
	}
}
