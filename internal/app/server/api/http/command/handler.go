package command

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/command"
)

type Handler struct {
	service    command.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service command.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
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

	result, err := h.service.Sync(ctx, userID, identity.GetDeviceID(ctx), identity.GetDeviceType(ctx), input.Body.Commands)
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

	items, err := h.service.ChangesSince(ctx, userID, identity.GetDeviceID(ctx), input.Since)
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
