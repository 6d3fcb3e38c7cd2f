package notify

import "context"

// Broker — pub/sub транспорт уведомлений. Реализация обязана быть
// безопасной для конкурентного использования.
type Broker interface {
	// Publish доставляет payload всем подписчикам канала.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe создаёт подписку на канал; подписка живёт до Close.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription — поток сообщений одного канала.
type Subscription interface {
	// C возвращает канал входящих сообщений; закрывается вместе с подпиской.
	C() <-chan []byte
	// Close отписывается от канала; повторные вызовы безопасны.
	Close() error
}
