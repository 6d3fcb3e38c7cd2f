package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termsync/internal/domain/syncitem"
)

func newTestRepository(t *testing.T) *ItemRepository {
	t.Helper()

	storage, err := New(filepath.Join(t.TempDir(), "termsync_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewItemRepository(storage.DB(), log)
}

func makeItem(userID, syncType, syncKey string, modified time.Time) *syncitem.SyncItem {
	return &syncitem.SyncItem{
		ID:               "item_" + syncKey,
		UserID:           userID,
		SyncType:         syncType,
		SyncKey:          syncKey,
		Data:             map[string]any{"command": "ls -la", "exit_code": 0},
		Version:          1,
		SourceDeviceID:   "dev-a",
		SourceDeviceType: syncitem.DeviceDesktop,
		SyncedAt:         modified,
		LastModifiedAt:   modified,
	}
}

func TestItemRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	item := makeItem("user-1", "command", "command_user-1_t1", now)
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.Get(ctx, "user-1", "command", "command_user-1_t1")
	require.NoError(t, err)

	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "command", got.SyncType)
	assert.Equal(t, 1, got.Version)
	assert.False(t, got.IsDeleted)
	assert.Equal(t, "dev-a", got.SourceDeviceID)
	assert.Equal(t, syncitem.DeviceDesktop, got.SourceDeviceType)
	assert.Equal(t, "ls -la", got.Data["command"])
	assert.EqualValues(t, 0, got.Data["exit_code"])
	assert.Nil(t, got.ConflictData)
	assert.Nil(t, got.ResolvedAt)
	assert.WithinDuration(t, now, got.LastModifiedAt, time.Second)
}

func TestItemRepository_Get_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "user-1", "command", "missing")

	assert.ErrorIs(t, err, syncitem.ErrItemNotFound)
}

func TestItemRepository_GetByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := makeItem("user-1", "command", "k1", time.Now())
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "k1", got.SyncKey)

	_, err = repo.GetByID(ctx, "item_missing")
	assert.ErrorIs(t, err, syncitem.ErrItemNotFound)
}

func TestItemRepository_Create_BusyIdentity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := makeItem("user-1", "command", "k1", time.Now())
	require.NoError(t, repo.Create(ctx, first))

	// Тот же (user, type, key) под другим суррогатным ID — проигравший гонку
	second := makeItem("user-1", "command", "k1", time.Now())
	second.ID = "item_other"

	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, syncitem.ErrVersionConflict)
}

func TestItemRepository_Update_CompareAndSwap(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := makeItem("user-1", "command", "k1", time.Now())
	require.NoError(t, repo.Create(ctx, item))

	item.Data = map[string]any{"command": "git pull"}
	item.Version = 2
	item.LastModifiedAt = time.Now()
	require.NoError(t, repo.Update(ctx, item, 1))

	got, err := repo.Get(ctx, "user-1", "command", "k1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "git pull", got.Data["command"])

	// Повтор со старой ожидаемой версией не проходит
	item.Version = 3
	err = repo.Update(ctx, item, 1)
	assert.ErrorIs(t, err, syncitem.ErrVersionConflict)
}

func TestItemRepository_Update_ConflictLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	item := makeItem("user-1", "ssh_profile", "p1", time.Now())
	require.NoError(t, repo.Create(ctx, item))

	// Открываем конфликт
	item.ConflictData = map[string]any{"host": "other.example.com"}
	item.Version = 2
	require.NoError(t, repo.Update(ctx, item, 1))

	open, err := repo.OpenConflicts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].HasOpenConflict())
	assert.Equal(t, "other.example.com", open[0].ConflictData["host"])

	// Разрешаем
	resolvedAt := time.Now()
	item.ConflictData = nil
	item.ResolvedAt = &resolvedAt
	item.Version = 3
	require.NoError(t, repo.Update(ctx, item, 2))

	open, err = repo.OpenConflicts(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, open)

	got, err := repo.Get(ctx, "user-1", "ssh_profile", "p1")
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.WithinDuration(t, resolvedAt, *got.ResolvedAt, time.Second)
}

func TestItemRepository_ChangesSince(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	first := makeItem("user-1", "command", "k1", base.Add(1*time.Minute))
	second := makeItem("user-1", "user_setting", "k2", base.Add(2*time.Minute))
	second.SourceDeviceID = "dev-b"
	third := makeItem("user-1", "command", "k3", base.Add(3*time.Minute))
	stranger := makeItem("user-2", "command", "k4", base.Add(4*time.Minute))

	for _, item := range []*syncitem.SyncItem{first, second, third, stranger} {
		require.NoError(t, repo.Create(ctx, item))
	}

	// Без фильтров: только свои, по возрастанию времени
	items, err := repo.ChangesSince(ctx, "user-1", base, syncitem.ChangesQuery{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "k1", items[0].SyncKey)
	assert.Equal(t, "k3", items[2].SyncKey)

	// Фильтр по типу
	items, err = repo.ChangesSince(ctx, "user-1", base, syncitem.ChangesQuery{SyncType: "command"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Отсечение своего устройства
	items, err = repo.ChangesSince(ctx, "user-1", base, syncitem.ChangesQuery{ExcludeDeviceID: "dev-a"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "k2", items[0].SyncKey)

	// Лимит
	items, err = repo.ChangesSince(ctx, "user-1", base, syncitem.ChangesQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "k1", items[0].SyncKey)

	// Отметка после всех изменений
	items, err = repo.ChangesSince(ctx, "user-1", base.Add(time.Hour), syncitem.ChangesQuery{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemRepository_Stats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	first := makeItem("user-1", "command", "k1", now)
	second := makeItem("user-1", "command", "k2", now)
	second.IsDeleted = true
	third := makeItem("user-1", "ssh_profile", "k3", now)
	third.SourceDeviceType = syncitem.DeviceMobile

	for _, item := range []*syncitem.SyncItem{first, second, third} {
		require.NoError(t, repo.Create(ctx, item))
	}

	// Открытый конфликт у третьего
	third.ConflictData = map[string]any{"host": "x"}
	third.Version = 2
	require.NoError(t, repo.Update(ctx, third, 1))

	stats, err := repo.Stats(ctx, "user-1")
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalItems)
	assert.EqualValues(t, 1, stats.OpenConflicts)
	assert.EqualValues(t, 1, stats.Deleted)
	assert.EqualValues(t, 2, stats.ByType["command"])
	assert.EqualValues(t, 1, stats.ByType["ssh_profile"])
	assert.EqualValues(t, 2, stats.ByDeviceType["desktop"])
	assert.EqualValues(t, 1, stats.ByDeviceType["mobile"])
}

func TestItemRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	old := time.Now().Add(-60 * 24 * time.Hour)

	tombstone := makeItem("user-1", "command", "k1", old)
	tombstone.IsDeleted = true
	liveOld := makeItem("user-1", "command", "k2", old)
	freshTombstone := makeItem("user-1", "command", "k3", time.Now())
	freshTombstone.IsDeleted = true

	for _, item := range []*syncitem.SyncItem{tombstone, liveOld, freshTombstone} {
		require.NoError(t, repo.Create(ctx, item))
	}

	removed, err := repo.DeleteOlderThan(ctx, time.Now().Add(-30*24*time.Hour), "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// Живая запись и свежий tombstone остаются
	_, err = repo.Get(ctx, "user-1", "command", "k2")
	assert.NoError(t, err)
	_, err = repo.Get(ctx, "user-1", "command", "k3")
	assert.NoError(t, err)
	_, err = repo.Get(ctx, "user-1", "command", "k1")
	assert.ErrorIs(t, err, syncitem.ErrItemNotFound)
}

func TestItemRepository_DeleteOlderThan_ScopedFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	old := time.Now().Add(-60 * 24 * time.Hour)

	mine := makeItem("user-1", "command", "k1", old)
	mine.IsDeleted = true
	other := makeItem("user-2", "command", "k2", old)
	other.IsDeleted = true

	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, other))

	removed, err := repo.DeleteOlderThan(ctx, time.Now(), "user-1", "command")
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// Чужой tombstone не тронут
	got, err := repo.Get(ctx, "user-2", "command", "k2")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}
