// events.go — SSE (Server-Sent Events) endpoint консоли.
// GET /api/v1/events — поток real-time обновлений текущего пользователя:
// изменения реестра файлов (file-insert/file-update/file-delete),
// toast-уведомления и статусы зависимостей.
// Каждый SSE-клиент обслуживается отдельной горутиной.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/realtime"
	"github.com/arturkryukov/kbconsole/internal/service"
)

// EventsHandler — обработчик SSE endpoint.
type EventsHandler struct {
	broker       *realtime.Broker
	notifier     *notify.Notifier
	dephealthSvc *service.DephealthService // может быть nil
	depInterval  time.Duration
	logger       *slog.Logger
}

// NewEventsHandler создаёт обработчик SSE.
// depInterval — период отправки dep-status (KB_DEPHEALTH_CHECK_INTERVAL).
func NewEventsHandler(
	broker *realtime.Broker,
	notifier *notify.Notifier,
	dephealthSvc *service.DephealthService,
	depInterval time.Duration,
	logger *slog.Logger,
) *EventsHandler {
	return &EventsHandler{
		broker:       broker,
		notifier:     notifier,
		dephealthSvc: dephealthSvc,
		depInterval:  depInterval,
		logger:       logger.With(slog.String("component", "events")),
	}
}

// depStatusEvent — SSE-событие статусов зависимостей.
type depStatusEvent struct {
	Dependencies []depStatusItem `json:"dependencies"`
}

// depStatusItem — статус одной зависимости.
type depStatusItem struct {
	Name   string `json:"name"`
	Status string `json:"status"` // online, offline, unavailable
}

// HandleEvents обрабатывает GET /api/v1/events.
// События реестра приходят из Postgres LISTEN/NOTIFY через broker,
// toast-и — из notifier (накопленные доставляются при подключении),
// dep-status отправляется периодически.
// Graceful disconnect при закрытии клиентом соединения (context cancel).
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	session := requireSession(w, r)
	if session == nil {
		return
	}

	// Настраиваем заголовки SSE
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Отключаем буферизацию Nginx

	// Используем http.ResponseController для корректной работы Flush()
	// через обёрнутый ResponseWriter (logging middleware и др.).
	// ResponseController вызывает Unwrap() и находит оригинальный http.Flusher.
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		http.Error(w, "SSE не поддерживается", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	fileCh, unsubscribeFiles := h.broker.Subscribe(session.UserID)
	defer unsubscribeFiles()
	toastCh, unsubscribeToasts := h.notifier.Subscribe(session.UserID)
	defer unsubscribeToasts()

	h.logger.Debug("SSE клиент подключён",
		slog.String("user_id", session.UserID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	// Начальный dep-status сразу при подключении
	h.sendDepStatus(w, rc)

	ticker := time.NewTicker(h.depInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Клиент отключился
			h.logger.Debug("SSE клиент отключён",
				slog.String("user_id", session.UserID),
			)
			return
		case ev, ok := <-fileCh:
			if !ok {
				return
			}
			h.sendFileEvent(w, rc, ev)
		case toast, ok := <-toastCh:
			if !ok {
				return
			}
			h.sendEvent(w, rc, "toast", toast)
		case <-ticker.C:
			h.sendDepStatus(w, rc)
		}
	}
}

// sendFileEvent отправляет событие изменения реестра файлов.
func (h *EventsHandler) sendFileEvent(w http.ResponseWriter, rc *http.ResponseController, ev realtime.FileEvent) {
	var name string
	switch ev.Op {
	case realtime.OpInsert:
		name = "file-insert"
	case realtime.OpUpdate:
		name = "file-update"
	case realtime.OpDelete:
		name = "file-delete"
	default:
		return
	}
	h.sendEvent(w, rc, name, ev.Row)
}

// sendDepStatus отправляет SSE-событие со статусами зависимостей.
func (h *EventsHandler) sendDepStatus(w http.ResponseWriter, rc *http.ResponseController) {
	event := depStatusEvent{}

	if h.dephealthSvc == nil {
		event.Dependencies = []depStatusItem{
			{Name: "PostgreSQL", Status: "unavailable"},
			{Name: "Pipeline", Status: "unavailable"},
		}
	} else {
		health := h.dephealthSvc.Health()
		// Health() возвращает ключи формата "dependency:host:port"
		// (например "postgresql:postgresql:5432").
		// Ищем статус по префиксу имени зависимости.
		event.Dependencies = []depStatusItem{
			{Name: "PostgreSQL", Status: depHealthStatus(findHealthByPrefix(health, "postgresql"))},
			{Name: "Pipeline", Status: depHealthStatus(findHealthByPrefix(health, service.PipelineDepName))},
		}
	}

	h.sendEvent(w, rc, "dep-status", event)
}

// sendEvent сериализует и отправляет одно SSE-событие.
// Формат SSE: event: <name>\ndata: {json}\n\n
func (h *EventsHandler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Ошибка сериализации SSE-события",
			slog.String("event", name),
			slog.String("error", err.Error()),
		)
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	_ = rc.Flush()
}

// depHealthStatus переводит bool из Health() в строковый статус.
func depHealthStatus(ok bool) string {
	if ok {
		return "online"
	}
	return "offline"
}

// findHealthByPrefix ищет статус зависимости по префиксу имени.
// Health() из topologymetrics SDK возвращает ключи формата "dependency:host:port",
// поэтому ищем ключ, начинающийся с имени зависимости + ":".
// Если найдено несколько — возвращает true только если все healthy.
func findHealthByPrefix(health map[string]bool, prefix string) bool {
	found := false
	for key, ok := range health {
		if strings.HasPrefix(key, prefix+":") || key == prefix {
			if !ok {
				return false
			}
			found = true
		}
	}
	return found
}
