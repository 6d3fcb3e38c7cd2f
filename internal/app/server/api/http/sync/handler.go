package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

type Handler struct {
	service    syncitem.Servicer
	notifier   *notify.Notifier
	presence   *notify.PresenceTracker
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(
	service syncitem.Servicer,
	notifier *notify.Notifier,
	presence *notify.PresenceTracker,
	log *slog.Logger,
	middleware huma.Middlewares,
) *Handler {
	return &Handler{
		service:    service,
		notifier:   notifier,
		presence:   presence,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.uploadOp(), h.upload)
	huma.Register(api, h.changesOp(), h.changes)
	huma.Register(api, h.statsOp(), h.stats)
	huma.Register(api, h.conflictsOp(), h.conflicts)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	deviceID := identity.GetDeviceID(ctx)
	deviceType := identity.GetDeviceType(ctx)

	incoming := make([]syncitem.IncomingItem, 0, len(input.Body.Items))
	for _, item := range input.Body.Items {
		incoming = append(incoming, syncitem.IncomingItem{
			SyncType: item.SyncType,
			SyncKey:  item.SyncKey,
			Data:     item.Data,
			Deleted:  item.Deleted,
		})
	}

	result := h.service.ProcessBatch(ctx, userID, deviceID, deviceType, incoming)

	for syncType, count := range syncedByType(input.Body.Items, result) {
		h.notifier.PublishSyncUpdate(ctx, userID, syncType, count, deviceID)
	}
	for _, conflict := range result.Conflicts {
		h.notifier.PublishSyncConflict(ctx, userID, conflict.SyncKey, conflict.Report)
	}

	return &uploadOutput{
		Body: UploadResponse{
			Status:   "Ok",
			Accepted: len(input.Body.Items),
			Result:   result,
		},
	}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	deviceID := identity.GetDeviceID(ctx)

	syncTypes := input.Body.SyncTypes
	if len(syncTypes) == 0 {
		syncTypes = []string{""}
	}

	items := make([]syncitem.SyncItem, 0)
	for _, syncType := range syncTypes {
		part, err := h.service.ChangesSince(ctx, userID, input.Body.Since, syncitem.ChangesQuery{
			SyncType:        syncType,
			ExcludeDeviceID: deviceID,
			Limit:           input.Body.Limit,
		})
		if err != nil {
			return &changesOutput{
				Body: ChangesResponse{
					Status: "Error",
					Error:  err.Error(),
				},
			}, nil
		}
		items = append(items, part...)
	}

	conflicts, err := h.service.OpenConflicts(ctx, userID)
	if err != nil {
		return &changesOutput{
			Body: ChangesResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &changesOutput{
		Body: ChangesResponse{
			Status:            "Ok",
			Items:             items,
			Conflicts:         conflicts,
			ActiveDeviceCount: h.presence.ActiveCount(userID),
			ServerTime:        time.Now().UTC(),
		},
	}, nil
}

func (h *Handler) stats(ctx context.Context, _ *statsInput) (*statsOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	stats, err := h.service.Stats(ctx, userID)
	if err != nil {
		return &statsOutput{
			Body: StatsResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &statsOutput{
		Body: StatsResponse{
			Status: "Ok",
			Data:   stats,
		},
	}, nil
}

func (h *Handler) conflicts(ctx context.Context, _ *conflictsInput) (*conflictsOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	conflicted, err := h.service.OpenConflicts(ctx, userID)
	if err != nil {
		return &conflictsOutput{
			Body: ConflictsResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &conflictsOutput{
		Body: ConflictsResponse{
			Status: "Ok",
			Data:   conflicted,
		},
	}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	deviceID := identity.GetDeviceID(ctx)
	deviceType := identity.GetDeviceType(ctx)

	item, err := h.service.GetByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, syncitem.ErrItemNotFound) {
			return nil, huma.Error404NotFound("sync item not found")
		}
		return &resolveConflictOutput{
			Body: ResolveConflictResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}
	// Чужие элементы не раскрываем даже фактом существования.
	if item.UserID != userID {
		return nil, huma.Error404NotFound("sync item not found")
	}

	var chosen map[string]any
	switch input.Body.Chosen {
	case "local":
		chosen = item.Data
	case "remote":
		chosen = item.ConflictData
	case "data":
		if input.Body.Data == nil {
			return nil, huma.Error422UnprocessableEntity("data is required when chosen is 'data'")
		}
		chosen = input.Body.Data
	default:
		return nil, huma.Error422UnprocessableEntity("unknown resolution choice")
	}

	resolved, err := h.service.ResolveConflict(ctx, input.ID, chosen, deviceID, deviceType)
	if err != nil {
		switch {
		case errors.Is(err, syncitem.ErrItemNotFound):
			return nil, huma.Error404NotFound("sync item not found")
		case errors.Is(err, syncitem.ErrNoOpenConflict):
			return nil, huma.Error409Conflict("sync item has no open conflict")
		}
		return &resolveConflictOutput{
			Body: ResolveConflictResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	h.notifier.PublishSyncUpdate(ctx, userID, resolved.SyncType, 1, deviceID)

	return &resolveConflictOutput{
		Body: ResolveConflictResponse{
			Status: "Ok",
			Item:   resolved,
		},
	}, nil
}

// syncedByType раскладывает успешно принятые элементы по типам:
// конфликты и ошибки в уведомления не попадают.
func syncedByType(items []UploadItem, result *syncitem.BatchResult) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.SyncType]++
	}
	for _, conflict := range result.Conflicts {
		counts[conflict.SyncType]--
	}
	for _, itemErr := range result.Errors {
		if itemErr.Index >= 0 && itemErr.Index < len(items) {
			counts[items[itemErr.Index].SyncType]--
		}
	}
	for syncType, count := range counts {
		if count <= 0 {
			delete(counts, syncType)
		}
	}
	return counts
}
