// Пакет notify — эфемерные toast-уведомления пользователям консоли.
// Уведомления живут только в памяти процесса: доставляются подписчикам
// SSE-потока, недоставленные копятся в очереди пользователя и истекают
// по TTL. Никуда не персистятся.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Важность уведомления.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
)

// Размер буфера канала подписчика.
const subscriberBuffer = 16

// Toast — одно уведомление.
type Toast struct {
	// ID — монотонный идентификатор в пределах процесса
	ID int64 `json:"id"`
	// Severity — важность (success, error, info)
	Severity string `json:"severity"`
	// Message — текст уведомления
	Message string `json:"message"`
	// CreatedAt — время создания
	CreatedAt time.Time `json:"created_at"`
}

// pending — недоставленное уведомление с дедлайном.
type pending struct {
	toast     Toast
	expiresAt time.Time
}

// subscriber — одна подписка (одно SSE-соединение).
type subscriber struct {
	userID string
	ch     chan Toast
}

// Notifier — менеджер toast-уведомлений с очередями по пользователям.
type Notifier struct {
	mu      sync.Mutex
	nextID  int64
	subID   int
	subs    map[int]*subscriber
	queues  map[string][]pending
	ttl     time.Duration
	nowFunc func() time.Time
	logger  *slog.Logger
}

// NewNotifier создаёт Notifier. ttl — время жизни недоставленного
// уведомления (KB_TOAST_TTL).
func NewNotifier(ttl time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		nextID:  1,
		subs:    make(map[int]*subscriber),
		queues:  make(map[string][]pending),
		ttl:     ttl,
		nowFunc: time.Now,
		logger:  logger.With(slog.String("component", "notify")),
	}
}

// Push создаёт уведомление для пользователя userID.
// При живых подписчиках доставляется сразу, иначе попадает в очередь
// и ждёт подключения не дольше TTL.
func (n *Notifier) Push(userID, severity, message string) Toast {
	n.mu.Lock()
	defer n.mu.Unlock()

	toast := Toast{
		ID:        n.nextID,
		Severity:  severity,
		Message:   message,
		CreatedAt: n.nowFunc(),
	}
	n.nextID++

	delivered := false
	for _, sub := range n.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- toast:
			delivered = true
		default:
			n.logger.Warn("Буфер подписчика уведомлений переполнен",
				slog.String("user_id", userID),
			)
		}
	}

	if !delivered {
		n.queues[userID] = append(n.queues[userID], pending{
			toast:     toast,
			expiresAt: toast.CreatedAt.Add(n.ttl),
		})
	}
	return toast
}

// Subscribe регистрирует подписчика уведомлений пользователя userID.
// Накопленные неистёкшие уведомления доставляются сразу же.
// Возвращает канал и функцию отписки.
func (n *Notifier) Subscribe(userID string) (<-chan Toast, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.subID
	n.subID++

	sub := &subscriber{
		userID: userID,
		ch:     make(chan Toast, subscriberBuffer),
	}
	n.subs[id] = sub

	// Выгружаем очередь, отбрасывая истёкшие
	now := n.nowFunc()
	for _, p := range n.queues[userID] {
		if now.After(p.expiresAt) {
			continue
		}
		select {
		case sub.ch <- p.toast:
		default:
		}
	}
	delete(n.queues, userID)

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if s, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// Sweep удаляет истёкшие уведомления из всех очередей.
// Вызывается периодически из фоновой горутины сервера.
func (n *Notifier) Sweep() {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.nowFunc()
	for userID, queue := range n.queues {
		kept := queue[:0]
		for _, p := range queue {
			if now.Before(p.expiresAt) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(n.queues, userID)
		} else {
			n.queues[userID] = kept
		}
	}
}
