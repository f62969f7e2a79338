// listener.go — фоновый слушатель NOTIFY-уведомлений PostgreSQL.
//
// Listener держит выделенное соединение из пула, выполняет LISTEN
// kb_file_events и раздаёт разобранные события через Broker.
// При ошибке соединения — переподключение с паузой.
package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Пауза перед переподключением после ошибки соединения.
const reconnectDelay = 3 * time.Second

// Listener — фоновый сервис LISTEN/NOTIFY.
type Listener struct {
	pool   *pgxpool.Pool
	broker *Broker
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener создаёт слушатель уведомлений реестра файлов.
func NewListener(pool *pgxpool.Pool, broker *Broker, logger *slog.Logger) *Listener {
	return &Listener{
		pool:   pool,
		broker: broker,
		logger: logger.With(slog.String("component", "realtime.listener")),
	}
}

// Start запускает фоновую горутину прослушивания.
// Вызывается один раз при старте приложения.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)

		l.logger.Info("Слушатель событий реестра запущен",
			slog.String("channel", NotifyChannel),
		)

		for {
			if ctx.Err() != nil {
				l.logger.Info("Слушатель событий реестра остановлен")
				return
			}

			if err := l.listen(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("Соединение LISTEN потеряно, переподключение",
					slog.String("error", err.Error()),
					slog.String("delay", reconnectDelay.String()),
				)
				select {
				case <-ctx.Done():
				case <-time.After(reconnectDelay):
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.done != nil {
		<-l.done
	}
}

// listen захватывает соединение, подписывается на канал и читает
// уведомления до ошибки или отмены контекста.
func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, err := ParseFileEvent(notification.Payload)
		if err != nil {
			// Непарсящееся уведомление пропускаем: канал общий,
			// ломать поток из-за одной записи нельзя.
			l.logger.Warn("Пропущено некорректное уведомление",
				slog.String("error", err.Error()),
			)
			continue
		}

		l.logger.Debug("Событие реестра получено",
			slog.String("op", ev.Op),
			slog.String("file_id", ev.Row.ID),
			slog.String("user_id", ev.Row.UserID),
		)
		l.broker.Publish(*ev)
	}
}
