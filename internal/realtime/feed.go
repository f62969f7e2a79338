// Пакет realtime — доставка изменений реестра файлов в реальном времени.
// Источник — Postgres LISTEN/NOTIFY (канал kb_file_events, триггер на files),
// раздача подписчикам — внутрипроцессный брокер.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
)

// Операции изменения реестра (значения TG_OP из триггера).
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Имя NOTIFY-канала, в который пишет триггер trg_files_notify.
const NotifyChannel = "kb_file_events"

// FileEvent — одно изменение строки реестра файлов.
// Для DELETE поле Row содержит удалённую строку.
type FileEvent struct {
	// Op — операция (INSERT, UPDATE, DELETE)
	Op string `json:"op"`
	// Row — строка таблицы files
	Row model.FileRecord `json:"row"`
}

// ParseFileEvent разбирает полезную нагрузку NOTIFY-уведомления.
func ParseFileEvent(payload string) (*FileEvent, error) {
	var ev FileEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("ошибка разбора события реестра: %w", err)
	}
	switch ev.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("неизвестная операция события: %q", ev.Op)
	}
	return &ev, nil
}
