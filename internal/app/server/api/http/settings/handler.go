package settings

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/settings"
)

type Handler struct {
	service    settings.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service settings.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.syncOp(), h.sync)
	huma.Register(api, h.currentOp(), h.current)
	huma.Register(api, h.diffOp(), h.diff)
	huma.Register(api, h.exportOp(), h.export)
	huma.Register(api, h.importOp(), h.importSettings)
}

func (h *Handler) sync(ctx context.Context, input *syncInput) (*syncOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.Sync(ctx, userID, identity.GetDeviceID(ctx), identity.GetDeviceType(ctx), input.Body.Settings)
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

func (h *Handler) current(ctx context.Context, _ *currentInput) (*currentOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	current, err := h.service.Current(ctx, userID)
	if err != nil {
		return &currentOutput{
			Body: CurrentResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &currentOutput{
		Body: CurrentResponse{
			Status:   "Ok",
			Settings: current,
		},
	}, nil
}

func (h *Handler) diff(ctx context.Context, input *diffInput) (*diffOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	diff, err := h.service.Diff(ctx, userID, input.Body.Settings)
	if err != nil {
		return &diffOutput{
			Body: DiffResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &diffOutput{
		Body: DiffResponse{
			Status: "Ok",
			Diff:   diff,
		},
	}, nil
}

func (h *Handler) export(ctx context.Context, _ *exportInput) (*exportOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	export, err := h.service.Export(ctx, userID)
	if err != nil {
		return &exportOutput{
			Body: ExportResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &exportOutput{
		Body: ExportResponse{
			Status: "Ok",
			Export: export,
		},
	}, nil
}

func (h *Handler) importSettings(ctx context.Context, input *importInput) (*importOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	result, err := h.service.Import(ctx, userID, identity.GetDeviceID(ctx), identity.GetDeviceType(ctx), input.Body.Data, input.Body.Overwrite)
	if err != nil {
		return &importOutput{
			Body: ImportResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &importOutput{
		Body: ImportResponse{
			Status: "Ok",
			Result: result,
		},
	}, nil
}
