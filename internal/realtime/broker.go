package realtime

import (
	"log/slog"
	"sync"
)

// Размер буфера канала подписчика. Медленный подписчик (не вычитавший
// буфер) теряет события, но не блокирует раздачу остальным.
const subscriberBuffer = 16

// Broker — внутрипроцессный брокер событий реестра файлов.
// Каждый подписчик получает только события строк своего пользователя.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
	logger *slog.Logger
}

// subscriber — одна подписка (одно SSE-соединение).
type subscriber struct {
	userID string
	ch     chan FileEvent
}

// NewBroker создаёт брокер событий.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[int]*subscriber),
		logger: logger.With(slog.String("component", "realtime.broker")),
	}
}

// Subscribe регистрирует подписчика на события пользователя userID.
// Возвращает канал событий и функцию отписки. Отписка закрывает канал;
// вызывать её обязательно при завершении соединения.
func (b *Broker) Subscribe(userID string) (<-chan FileEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		userID: userID,
		ch:     make(chan FileEvent, subscriberBuffer),
	}
	b.subs[id] = sub

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Publish раздаёт событие всем подписчикам владельца строки.
// Отправка неблокирующая: при переполненном буфере событие отбрасывается.
func (b *Broker) Publish(ev FileEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.userID != ev.Row.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("Буфер подписчика переполнен, событие отброшено",
				slog.String("user_id", sub.userID),
				slog.String("op", ev.Op),
			)
		}
	}
}

// SubscriberCount возвращает текущее число подписчиков.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
