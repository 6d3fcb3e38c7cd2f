package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

type MockServicer struct {
	mock.Mock
}

func (m *MockServicer) Get(ctx context.Context, userID, syncType, syncKey string) (*syncitem.SyncItem, error) {
	args := m.Called(ctx, userID, syncType, syncKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) GetByID(ctx context.Context, itemID string) (*syncitem.SyncItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) CreateOrUpdate(ctx context.Context, userID string, incoming syncitem.IncomingItem, deviceID string, deviceType syncitem.DeviceType) (*syncitem.SyncItem, error) {
	args := m.Called(ctx, userID, incoming, deviceID, deviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) MarkDeleted(ctx context.Context, userID, syncType, syncKey, deviceID string, deviceType syncitem.DeviceType) (bool, error) {
	args := m.Called(ctx, userID, syncType, syncKey, deviceID, deviceType)
	return args.Bool(0), args.Error(1)
}

func (m *MockServicer) ResolveConflict(ctx context.Context, itemID string, chosen map[string]any, deviceID string, deviceType syncitem.DeviceType) (*syncitem.SyncItem, error) {
	args := m.Called(ctx, itemID, chosen, deviceID, deviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) ChangesSince(ctx context.Context, userID string, since time.Time, query syncitem.ChangesQuery) ([]syncitem.SyncItem, error) {
	args := m.Called(ctx, userID, since, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) OpenConflicts(ctx context.Context, userID string) ([]syncitem.SyncItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncitem.SyncItem), args.Error(1)
}

func (m *MockServicer) Stats(ctx context.Context, userID string) (*syncitem.Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncitem.Stats), args.Error(1)
}

func (m *MockServicer) Cleanup(ctx context.Context, olderThanDays int, userID, syncType string) (int64, error) {
	args := m.Called(ctx, olderThanDays, userID, syncType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockServicer) ProcessBatch(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, items []syncitem.IncomingItem) *syncitem.BatchResult {
	args := m.Called(ctx, userID, deviceID, deviceType, items)
	return args.Get(0).(*syncitem.BatchResult)
}

func newTestHandler(svc syncitem.Servicer) (*Handler, *notify.PresenceTracker) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	presence := notify.NewPresenceTracker()
	return NewHandler(svc, notify.NewNotifier(nil, log), presence, log, nil), presence
}

func identityCtx(userID, deviceID string) context.Context {
	return identity.WithIdentity(context.Background(), userID, deviceID, syncitem.DeviceDesktop)
}

func TestUpload_ForwardsBatchToService(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	input := &uploadInput{}
	input.Body.Items = []UploadItem{
		{SyncType: "command", SyncKey: "command_user-1_a", Data: map[string]any{"command": "ls"}},
		{SyncType: "user_setting", SyncKey: "user_setting_user-1_terminal_theme", Data: map[string]any{"value": "dark"}},
	}

	svc.On("ProcessBatch",
		mock.Anything,
		"user-1",
		"dev-a",
		syncitem.DeviceDesktop,
		mock.MatchedBy(func(items []syncitem.IncomingItem) bool {
			return len(items) == 2 &&
				items[0].SyncType == "command" &&
				items[1].SyncKey == "user_setting_user-1_terminal_theme"
		}),
	).Return(&syncitem.BatchResult{Synced: 2})

	resp, err := h.upload(identityCtx("user-1", "dev-a"), input)

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Body.Status)
	assert.Equal(t, 2, resp.Body.Accepted)
	assert.Equal(t, 2, resp.Body.Result.Synced)
	svc.AssertExpectations(t)
}

func TestUpload_WithoutIdentityIsRejected(t *testing.T) {
	h, _ := newTestHandler(new(MockServicer))

	input := &uploadInput{}
	input.Body.Items = []UploadItem{{SyncType: "command", SyncKey: "k"}}

	resp, err := h.upload(context.Background(), input)

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestChanges_QueriesEveryRequestedType(t *testing.T) {
	svc := new(MockServicer)
	h, presence := newTestHandler(svc)
	presence.RegisterActivity("user-1", "dev-a", time.Hour)
	presence.RegisterActivity("user-1", "dev-b", time.Hour)

	since := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	svc.On("ChangesSince", mock.Anything, "user-1", since, syncitem.ChangesQuery{
		SyncType:        "command",
		ExcludeDeviceID: "dev-a",
	}).Return([]syncitem.SyncItem{{ID: "item_1", SyncType: "command"}}, nil)
	svc.On("ChangesSince", mock.Anything, "user-1", since, syncitem.ChangesQuery{
		SyncType:        "user_setting",
		ExcludeDeviceID: "dev-a",
	}).Return([]syncitem.SyncItem{{ID: "item_2", SyncType: "user_setting"}}, nil)
	svc.On("OpenConflicts", mock.Anything, "user-1").
		Return([]syncitem.SyncItem{}, nil)

	input := &changesInput{}
	input.Body.Since = since
	input.Body.SyncTypes = []string{"command", "user_setting"}

	resp, err := h.changes(identityCtx("user-1", "dev-a"), input)

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Body.Status)
	assert.Len(t, resp.Body.Items, 2)
	assert.Equal(t, 2, resp.Body.ActiveDeviceCount)
	assert.False(t, resp.Body.ServerTime.IsZero())
	svc.AssertExpectations(t)
}

func TestChanges_EmptyTypeListMeansAllTypes(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("ChangesSince", mock.Anything, "user-1", mock.Anything, syncitem.ChangesQuery{
		SyncType:        "",
		ExcludeDeviceID: "dev-a",
	}).Return([]syncitem.SyncItem{}, nil)
	svc.On("OpenConflicts", mock.Anything, "user-1").
		Return([]syncitem.SyncItem{}, nil)

	resp, err := h.changes(identityCtx("user-1", "dev-a"), &changesInput{})

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Body.Status)
	svc.AssertExpectations(t)
}

func TestChanges_ServiceErrorGoesToBody(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("ChangesSince", mock.Anything, "user-1", mock.Anything, mock.Anything).
		Return(nil, errors.New("storage offline"))

	resp, err := h.changes(identityCtx("user-1", "dev-a"), &changesInput{})

	assert.NoError(t, err)
	assert.Equal(t, "Error", resp.Body.Status)
	assert.Contains(t, resp.Body.Error, "storage offline")
}

func TestStats_ReturnsServiceData(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("Stats", mock.Anything, "user-1").Return(&syncitem.Stats{
		TotalItems:    5,
		OpenConflicts: 1,
		ByType:        map[string]int64{"command": 5},
	}, nil)

	resp, err := h.stats(identityCtx("user-1", ""), &statsInput{})

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Body.Status)
	assert.Equal(t, int64(5), resp.Body.Data.TotalItems)
	assert.Equal(t, int64(1), resp.Body.Data.OpenConflicts)
}

func TestResolveConflict_RemoteTakesConflictData(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	stored := &syncitem.SyncItem{
		ID:           "item_1",
		UserID:       "user-1",
		SyncType:     "ssh_profile",
		Data:         map[string]any{"host": "local.example.com"},
		ConflictData: map[string]any{"host": "remote.example.com"},
	}
	svc.On("GetByID", mock.Anything, "item_1").Return(stored, nil)
	svc.On("ResolveConflict",
		mock.Anything,
		"item_1",
		map[string]any{"host": "remote.example.com"},
		"dev-a",
		syncitem.DeviceDesktop,
	).Return(&syncitem.SyncItem{ID: "item_1", UserID: "user-1", SyncType: "ssh_profile", Version: 3}, nil)

	input := &resolveConflictInput{ID: "item_1"}
	input.Body.Chosen = "remote"

	resp, err := h.resolveConflict(identityCtx("user-1", "dev-a"), input)

	assert.NoError(t, err)
	assert.Equal(t, "Ok", resp.Body.Status)
	assert.Equal(t, 3, resp.Body.Item.Version)
	svc.AssertExpectations(t)
}

func TestResolveConflict_ForeignItemLooksMissing(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("GetByID", mock.Anything, "item_1").Return(&syncitem.SyncItem{
		ID:     "item_1",
		UserID: "user-2",
	}, nil)

	input := &resolveConflictInput{ID: "item_1"}
	input.Body.Chosen = "local"

	resp, err := h.resolveConflict(identityCtx("user-1", "dev-a"), input)

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolveConflict_DataChoiceRequiresPayload(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("GetByID", mock.Anything, "item_1").Return(&syncitem.SyncItem{
		ID:     "item_1",
		UserID: "user-1",
	}, nil)

	input := &resolveConflictInput{ID: "item_1"}
	input.Body.Chosen = "data"

	resp, err := h.resolveConflict(identityCtx("user-1", "dev-a"), input)

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data is required")
}

func TestResolveConflict_AlreadyResolvedConflicts(t *testing.T) {
	svc := new(MockServicer)
	h, _ := newTestHandler(svc)

	svc.On("GetByID", mock.Anything, "item_1").Return(&syncitem.SyncItem{
		ID:     "item_1",
		UserID: "user-1",
		Data:   map[string]any{"host": "a"},
	}, nil)
	svc.On("ResolveConflict", mock.Anything, "item_1", mock.Anything, "dev-a", syncitem.DeviceDesktop).
		Return(nil, syncitem.ErrNoOpenConflict)

	input := &resolveConflictInput{ID: "item_1"}
	input.Body.Chosen = "local"

	resp, err := h.resolveConflict(identityCtx("user-1", "dev-a"), input)

	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no open conflict")
}

func TestSyncedByType_SubtractsConflictsAndFailures(t *testing.T) {
	items := []UploadItem{
		{SyncType: "command"},
		{SyncType: "command"},
		{SyncType: "ssh_profile"},
		{SyncType: "user_setting"},
	}
	result := &syncitem.BatchResult{
		Conflicts: []syncitem.ConflictInfo{{SyncType: "ssh_profile"}},
		Errors:    []syncitem.ItemError{{Index: 3, SyncKey: "user_setting_x"}},
	}

	counts := syncedByType(items, result)

	assert.Equal(t, map[string]int{"command": 2}, counts)
}
