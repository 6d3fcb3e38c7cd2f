package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"termsync/internal/domain/resolver"
)

// MockBroker мок брокера для тестирования
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func (m *MockBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Subscription), args.Error(1)
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "sync:user:u1", UserChannel("u1"))
	assert.Equal(t, "sync:user:u1:device:d1", DeviceChannel("u1", "d1"))
}

func TestPublishSyncUpdate(t *testing.T) {
	// Arrange
	mockBroker := new(MockBroker)
	notifier := NewNotifier(mockBroker, testLog())

	mockBroker.On("Publish", mock.Anything, "sync:user:u1", mock.MatchedBy(func(payload []byte) bool {
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg.Type == TypeSyncUpdate &&
			msg.UserID == "u1" &&
			msg.SyncType == "command" &&
			msg.Count == 5 &&
			msg.SourceDeviceID == "dev-a"
	})).Return(nil)

	// Act
	delivered := notifier.PublishSyncUpdate(context.Background(), "u1", "command", 5, "dev-a")

	// Assert
	assert.True(t, delivered)
	mockBroker.AssertExpectations(t)
}

func TestPublishSyncConflict(t *testing.T) {
	// Arrange
	mockBroker := new(MockBroker)
	notifier := NewNotifier(mockBroker, testLog())
	report := resolver.Report{ConflictID: "conflict_abc", SyncKey: "key-1"}

	mockBroker.On("Publish", mock.Anything, "sync:user:u1", mock.MatchedBy(func(payload []byte) bool {
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg.Type == TypeSyncConflict &&
			msg.SyncKey == "key-1" &&
			msg.Conflict != nil &&
			msg.Conflict.ConflictID == "conflict_abc"
	})).Return(nil)

	// Act
	delivered := notifier.PublishSyncConflict(context.Background(), "u1", "key-1", report)

	// Assert
	assert.True(t, delivered)
	mockBroker.AssertExpectations(t)
}

func TestSendToDevice_UsesDeviceChannel(t *testing.T) {
	// Arrange
	mockBroker := new(MockBroker)
	notifier := NewNotifier(mockBroker, testLog())

	mockBroker.On("Publish", mock.Anything, "sync:user:u1:device:d2", mock.Anything).Return(nil)

	// Act
	delivered := notifier.SendToDevice(context.Background(), "u1", "d2", map[string]any{"ping": true})

	// Assert
	assert.True(t, delivered)
	mockBroker.AssertExpectations(t)
}

func TestPublish_BrokerErrorIsNotFatal(t *testing.T) {
	// Arrange
	mockBroker := new(MockBroker)
	notifier := NewNotifier(mockBroker, testLog())

	mockBroker.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	// Act
	delivered := notifier.PublishDeviceStatus(context.Background(), "u1", "d1", "online")

	// Assert
	assert.False(t, delivered)
	mockBroker.AssertExpectations(t)
}

func TestPublish_NilBroker(t *testing.T) {
	// Arrange
	notifier := NewNotifier(nil, testLog())

	// Act & Assert: отсутствие транспорта — не ошибка
	assert.False(t, notifier.PublishSyncUpdate(context.Background(), "u1", "command", 1, "dev-a"))
	assert.False(t, notifier.PublishDeviceStatus(context.Background(), "u1", "d1", "offline"))
}
