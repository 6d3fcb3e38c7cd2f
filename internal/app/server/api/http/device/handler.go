package device

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

type Handler struct {
	presence   *notify.PresenceTracker
	notifier   *notify.Notifier
	ttl        time.Duration
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(presence *notify.PresenceTracker, notifier *notify.Notifier, ttl time.Duration, log *slog.Logger, middleware huma.Middlewares) *Handler {
	if ttl <= 0 {
		ttl = notify.DefaultPresenceTTL
	}
	return &Handler{
		presence:   presence,
		notifier:   notifier,
		ttl:        ttl,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.activeOp(), h.active)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	// Тип из тела запроса важнее заголовка: web-клиент шлет заголовки прокси.
	deviceType := identity.GetDeviceType(ctx)
	if input.Body.DeviceType != "" {
		deviceType = syncitem.NormalizeDeviceType(input.Body.DeviceType)
	}

	deviceID := input.Body.DeviceID
	if deviceID == "" {
		deviceID = identity.GetDeviceID(ctx)
	}
	if deviceID == "" {
		deviceID = generateDeviceID(userID, deviceType)
	}

	h.presence.RegisterActivity(userID, deviceID, h.ttl)
	h.notifier.PublishDeviceStatus(ctx, userID, deviceID, "online")

	h.log.Info("device registered",
		"user_id", userID, "device_id", deviceID, "device_type", deviceType)

	return &registerOutput{
		Body: RegisterResponse{
			Status:        "Ok",
			DeviceID:      deviceID,
			DeviceType:    string(deviceType),
			RequestedType: input.Body.DeviceType,
		},
	}, nil
}

func (h *Handler) active(ctx context.Context, _ *activeInput) (*activeOutput, error) {
	userID, ok := identity.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	devices := h.presence.ActiveDevices(userID)

	return &activeOutput{
		Body: ActiveResponse{
			Status:  "Ok",
			Devices: devices,
			Count:   len(devices),
		},
	}, nil
}

func generateDeviceID(userID string, deviceType syncitem.DeviceType) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", userID, deviceType, time.Now().UnixNano())))
	return "dev_" + hex.EncodeToString(sum[:])[:12]
}
