package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"termsync/internal/domain/syncitem"
)

// Заголовки, которыми клиент представляется серверу.
const (
	UserIDHeader     = "X-User-ID"
	DeviceIDHeader   = "X-Device-ID"
	DeviceTypeHeader = "X-Device-Type"
)

type contextKey string

const (
	userIDKey     contextKey = "userID"
	deviceIDKey   contextKey = "deviceID"
	deviceTypeKey contextKey = "deviceType"
)

// Identity извлекает идентичность пользователя и устройства из заголовков.
// Запрос без X-User-ID отклоняется; устройство — необязательная часть.
type Identity struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Identity {
	return &Identity{
		log: log.With("component", "identity_middleware"),
	}
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (i *Identity) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		userID := ctx.Header(UserIDHeader)
		if userID == "" {
			i.log.Warn("request without user identity", "path", ctx.URL().Path)
			ctx.SetStatus(http.StatusUnauthorized)
			ctx.SetHeader("Content-Type", "application/json")

			if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "X-User-ID header is required",
			}); err != nil {
				i.log.Error("failed to write unauthorized response", "error", err)
			}
			return
		}

		deviceType := syncitem.NormalizeDeviceType(ctx.Header(DeviceTypeHeader))
		newCtx := WithIdentity(ctx.Context(), userID, ctx.Header(DeviceIDHeader), deviceType)

		next(huma.WithContext(ctx, newCtx))
	}
}

// WithIdentity кладёт идентичность запроса в контекст.
func WithIdentity(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, deviceIDKey, deviceID)
	return context.WithValue(ctx, deviceTypeKey, deviceType)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func GetDeviceID(ctx context.Context) string {
	deviceID, _ := ctx.Value(deviceIDKey).(string)
	return deviceID
}

func GetDeviceType(ctx context.Context) syncitem.DeviceType {
	if deviceType, ok := ctx.Value(deviceTypeKey).(syncitem.DeviceType); ok {
		return deviceType
	}
	return syncitem.DeviceDesktop
}
