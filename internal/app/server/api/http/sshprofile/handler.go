package sshprofile

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/sshprofile"
	"termsync/internal/domain/syncitem"
)

type Handler struct {
	service    sshprofile.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sshprofile.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.syncOp(), h.sync)
	huma.Register(api, h.changesOp(), h.changes)
}

func (h *Handler) sync(ctx context.Context, input *syncInput) (*syncOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	deviceID := identity.GetDeviceID(ctx)
	deviceType := identity.GetDeviceType(ctx)

	var (
		result *sshprofile.SyncResult
		err    error
	)
	if input.Body.KeysOnly {
		result, err = h.service.SyncKeys(ctx, userID, deviceID, deviceType, input.Body.Profiles)
	} else {
		result, err = h.service.Sync(ctx, userID, deviceID, deviceType, input.Body.Profiles)
	}
	if err != nil {
		return &syncOutput{
			Body: SyncResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &syncOutput{
		Body: SyncResponse{
			Status: "Ok",
			Result: result,
		},
	}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	deviceID := identity.GetDeviceID(ctx)

	var (
		items []syncitem.SyncItem
		err   error
	)
	if input.KeysOnly {
		items, err = h.service.KeyChangesSince(ctx, userID, deviceID, input.Since)
	} else {
		items, err = h.service.ChangesSince(ctx, userID, deviceID, input.Since)
	}
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
			Status: "Ok",
			Items:  items,
		},
	}, nil
}
