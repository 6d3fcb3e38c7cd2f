package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"termsync/internal/domain/resolver"
)

// Notifier публикует события синхронизации. Все методы fire-and-forget:
// возвращают факт доставки в брокер и никогда не прерывают вызывающий
// сценарий — синхронизация важнее уведомления о ней.
type Notifier struct {
	broker Broker
	log    *slog.Logger
}

func NewNotifier(broker Broker, log *slog.Logger) *Notifier {
	return &Notifier{
		broker: broker,
		log:    log.With("component", "sync_notifier"),
	}
}

// PublishSyncUpdate сообщает остальным устройствам пользователя о новых
// синхронизированных данных.
func (n *Notifier) PublishSyncUpdate(ctx context.Context, userID, syncType string, count int, sourceDeviceID string) bool {
	return n.publish(ctx, UserChannel(userID), Message{
		Type:           TypeSyncUpdate,
		UserID:         userID,
		Timestamp:      time.Now().UTC(),
		SyncType:       syncType,
		Count:          count,
		SourceDeviceID: sourceDeviceID,
	})
}

// PublishSyncConflict рассылает отчёт об обнаруженном конфликте.
func (n *Notifier) PublishSyncConflict(ctx context.Context, userID, syncKey string, report resolver.Report) bool {
	return n.publish(ctx, UserChannel(userID), Message{
		Type:      TypeSyncConflict,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		SyncKey:   syncKey,
		Conflict:  &report,
	})
}

// PublishDeviceStatus сообщает об изменении статуса устройства.
func (n *Notifier) PublishDeviceStatus(ctx context.Context, userID, deviceID, status string) bool {
	return n.publish(ctx, UserChannel(userID), Message{
		Type:      TypeDeviceStatus,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    status,
	})
}

// SendToDevice доставляет произвольное сообщение конкретному устройству.
func (n *Notifier) SendToDevice(ctx context.Context, userID, deviceID string, data map[string]any) bool {
	return n.publish(ctx, DeviceChannel(userID, deviceID), Message{
		Type:      TypeDeviceMessage,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Data:      data,
	})
}

func (n *Notifier) publish(ctx context.Context, channel string, msg Message) bool {
	// работа без брокера допустима: уведомления просто не уходят
	if n.broker == nil {
		return false
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Warn("failed to marshal notification", "channel", channel, "type", msg.Type, "error", err)
		return false
	}

	if err := n.broker.Publish(ctx, channel, payload); err != nil {
		n.log.Warn("failed to publish notification", "channel", channel, "type", msg.Type, "error", err)
		return false
	}

	return true
}
