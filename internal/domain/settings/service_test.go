package settings

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

// MockItemStore мок хранилища для тестирования
type MockItemStore struct {
	mock.Mock
}

func (m *MockItemStore) ProcessBatch(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, items []syncitem.IncomingItem) *syncitem.BatchResult {
	args := m.Called(ctx, userID, deviceID, deviceType, items)
	return args.Get(0).(*syncitem.BatchResult)
}

func (m *MockItemStore) ChangesSince(ctx context.Context, userID string, since time.Time, query syncitem.ChangesQuery) ([]syncitem.SyncItem, error) {
	args := m.Called(ctx, userID, since, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncitem.SyncItem), args.Error(1)
}

func (m *MockItemStore) MarkDeleted(ctx context.Context, userID, syncType, syncKey, deviceID string, deviceType syncitem.DeviceType) (bool, error) {
	args := m.Called(ctx, userID, syncType, syncKey, deviceID, deviceType)
	return args.Bool(0), args.Error(1)
}

func newTestService(items ItemStore) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(items, notify.NewNotifier(nil, log), log, nil)
}

func settingItem(key string, value any) syncitem.SyncItem {
	return syncitem.SyncItem{
		SyncType: SyncType,
		SyncKey:  SyncType + "_user-1_" + key,
		Data:     map[string]any{"key": key, "value": value},
	}
}

func TestSync_DropsUnknownKeys(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	var captured []syncitem.IncomingItem
	mockStore.On("ProcessBatch", mock.Anything, "user-1", "dev-a", syncitem.DeviceDesktop,
		mock.MatchedBy(func(items []syncitem.IncomingItem) bool {
			captured = items
			return true
		})).Return(&syncitem.BatchResult{Synced: 1})

	// Act
	result, err := service.Sync(ctx, "user-1", "dev-a", syncitem.DeviceDesktop, map[string]any{
		"terminal_theme": "light",
		"evil_injection": "rm -rf /",
	})

	// Assert: до хранилища доходит только разрешённый ключ
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	require.Len(t, captured, 1)
	assert.Equal(t, "user_setting_user-1_terminal_theme", captured[0].SyncKey)
	assert.Equal(t, "terminal_theme", captured[0].Data["key"])
	assert.Equal(t, "light", captured[0].Data["value"])
	assert.NotEmpty(t, captured[0].Data["timestamp"])
	mockStore.AssertExpectations(t)
}

func TestSync_KeysAreOrderedDeterministically(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	mockStore.On("ProcessBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(items []syncitem.IncomingItem) bool {
			return len(items) == 3 &&
				items[0].Data["key"] == "color_scheme" &&
				items[1].Data["key"] == "font_size" &&
				items[2].Data["key"] == "terminal_theme"
		})).Return(&syncitem.BatchResult{Synced: 3})

	// Act
	_, err := service.Sync(ctx, "user-1", "dev-a", syncitem.DeviceDesktop, map[string]any{
		"terminal_theme": "dark",
		"color_scheme":   "solarized",
		"font_size":      16,
	})

	// Assert
	require.NoError(t, err)
	mockStore.AssertExpectations(t)
}

func TestCurrent_OverlaysStoredValuesOnDefaults(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	deleted := settingItem("font_size", 20)
	deleted.IsDeleted = true
	mockStore.On("ChangesSince", mock.Anything, "user-1", time.Time{},
		syncitem.ChangesQuery{SyncType: SyncType}).
		Return([]syncitem.SyncItem{
			settingItem("terminal_theme", "light"),
			deleted,
		}, nil)

	// Act
	current, err := service.Current(ctx, "user-1")

	// Assert: сохранённое значение перекрывает дефолт, удалённое — нет
	require.NoError(t, err)
	assert.Equal(t, "light", current["terminal_theme"])
	assert.Equal(t, 14, current["font_size"])
	assert.Equal(t, true, current["autocomplete_enabled"])
	mockStore.AssertExpectations(t)
}

func TestDiff_ReturnsChangedAllowedKeysOnly(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	mockStore.On("ChangesSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]syncitem.SyncItem{settingItem("terminal_theme", "light")}, nil)

	// Act
	diff, err := service.Diff(ctx, "user-1", map[string]any{
		"terminal_theme": "dark",
		"font_size":      14,
		"unknown_key":    "whatever",
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.Equal(t, "light", diff["terminal_theme"].Current)
	assert.Equal(t, "dark", diff["terminal_theme"].Incoming)
	mockStore.AssertExpectations(t)
}

func TestExport_WrapsCurrentSettings(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	mockStore.On("ChangesSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]syncitem.SyncItem{settingItem("terminal_theme", "light")}, nil)

	// Act
	export, err := service.Export(ctx, "user-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ExportFormatVersion, export.FormatVersion)
	assert.WithinDuration(t, time.Now().UTC(), export.ExportedAt, time.Minute)
	assert.Equal(t, "light", export.Settings["terminal_theme"])
	mockStore.AssertExpectations(t)
}

func TestImport_AcceptsExportEnvelope(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	mockStore.On("ProcessBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(items []syncitem.IncomingItem) bool {
			return len(items) == 1 && items[0].Data["key"] == "terminal_theme"
		})).Return(&syncitem.BatchResult{Synced: 1})

	// Act
	result, err := service.Import(ctx, "user-1", "dev-a", syncitem.DeviceDesktop, map[string]any{
		"format_version": float64(1),
		"exported_at":    "2024-01-15T10:00:00Z",
		"settings":       map[string]any{"terminal_theme": "light"},
	}, false)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	mockStore.AssertExpectations(t)
}

func TestImport_OverwriteTombstonesEveryAllowedKey(t *testing.T) {
	// Arrange
	mockStore := new(MockItemStore)
	service := newTestService(mockStore)
	ctx := context.Background()

	mockStore.On("MarkDeleted", mock.Anything, "user-1", SyncType, mock.Anything, "dev-a", syncitem.DeviceDesktop).
		Return(true, nil).
		Times(len(DefaultConfig().AllowedKeys))
	mockStore.On("ProcessBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&syncitem.BatchResult{Synced: 1})

	// Act
	_, err := service.Import(ctx, "user-1", "dev-a", syncitem.DeviceDesktop, map[string]any{
		"terminal_theme": "light",
	}, true)

	// Assert
	require.NoError(t, err)
	mockStore.AssertExpectations(t)
}
