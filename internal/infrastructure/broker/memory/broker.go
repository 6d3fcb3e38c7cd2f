package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"termsync/internal/notify"
)

// ErrClosed возвращается после остановки брокера.
var ErrClosed = errors.New("broker is closed")

const subscriptionBuffer = 64

// Broker — внутрипроцессная реализация pub/sub. Подписки группируются
// по имени канала; доставка никогда не блокирует издателя: при
// переполнении буфера подписчика вытесняется самое старое сообщение.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	log    *slog.Logger
}

func New(log *slog.Logger) *Broker {
	return &Broker{
		subs: make(map[string]map[*subscription]struct{}),
		log:  log.With("component", "memory_broker"),
	}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for sub := range b.subs[channel] {
		sub.push(payload)
	}

	return nil
}

func (b *Broker) Subscribe(_ context.Context, channel string) (notify.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		broker:  b,
		channel: channel,
		ch:      make(chan []byte, subscriptionBuffer),
	}

	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}

	return sub, nil
}

// Shutdown закрывает все подписки и отклоняет дальнейшие публикации.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	var open []*subscription
	for _, subs := range b.subs {
		for sub := range subs {
			open = append(open, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range open {
		_ = sub.Close()
	}

	b.log.Debug("memory broker stopped", "subscriptions_closed", len(open))
}

func (b *Broker) remove(channel string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[channel]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.subs, channel)
	}
}

type subscription struct {
	broker  *Broker
	channel string
	ch      chan []byte
	once    sync.Once
}

func (s *subscription) C() <-chan []byte {
	return s.ch
}

// Close снимает подписку; повторные вызовы безопасны. Канал закрывается
// только после удаления из реестра, поэтому Publish в него уже не попадёт.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.broker.remove(s.channel, s)
		close(s.ch)
	})

	return nil
}

// push кладёт сообщение без блокировки: полный буфер теряет старейшее.
func (s *subscription) push(payload []byte) {
	select {
	case s.ch <- payload:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- payload:
	default:
	}
}
