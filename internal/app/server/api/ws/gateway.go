package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/notify"
)

const writeTimeout = 5 * time.Second

// Gateway раздаёт события синхронизации подключённым устройствам.
// Одно соединение — одно устройство: подписка на канал пользователя
// и, если устройство представилось, на его личный канал.
type Gateway struct {
	broker   notify.Broker
	notifier *notify.Notifier
	presence *notify.PresenceTracker
	ttl      time.Duration
	log      *slog.Logger
}

func NewGateway(broker notify.Broker, notifier *notify.Notifier, presence *notify.PresenceTracker, ttl time.Duration, log *slog.Logger) *Gateway {
	if ttl <= 0 {
		ttl = notify.DefaultPresenceTTL
	}
	return &Gateway{
		broker:   broker,
		notifier: notifier,
		presence: presence,
		ttl:      ttl,
		log:      log.With("component", "ws_gateway"),
	}
}

// Handler обрабатывает GET /ws. Идентичность берётся из заголовков,
// для браузерных клиентов допускаются query-параметры.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(identity.UserIDHeader)
		if userID == "" {
			userID = r.URL.Query().Get("user_id")
		}
		if userID == "" {
			http.Error(w, "X-User-ID header is required", http.StatusUnauthorized)
			return
		}

		deviceID := r.Header.Get(identity.DeviceIDHeader)
		if deviceID == "" {
			deviceID = r.URL.Query().Get("device_id")
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			g.log.Error("websocket accept failed", "user_id", userID, "error", err)
			return
		}

		g.serve(r.Context(), conn, userID, deviceID)
	}
}

func (g *Gateway) serve(ctx context.Context, conn *websocket.Conn, userID, deviceID string) {
	defer g.disconnect(conn, userID, deviceID)

	userSub, err := g.broker.Subscribe(ctx, notify.UserChannel(userID))
	if err != nil {
		g.log.Error("failed to subscribe to user channel", "user_id", userID, "error", err)
		return
	}
	defer userSub.Close()

	// Личный канал есть только у представившихся устройств.
	// nil-канал в select просто никогда не срабатывает.
	var deviceMessages <-chan []byte
	if deviceID != "" {
		deviceSub, err := g.broker.Subscribe(ctx, notify.DeviceChannel(userID, deviceID))
		if err != nil {
			g.log.Error("failed to subscribe to device channel",
				"user_id", userID, "device_id", deviceID, "error", err)
			return
		}
		defer deviceSub.Close()
		deviceMessages = deviceSub.C()

		g.presence.RegisterActivity(userID, deviceID, g.ttl)
		g.notifier.PublishDeviceStatus(ctx, userID, deviceID, "online")
	}

	g.log.Info("device connected", "user_id", userID, "device_id", deviceID)

	// Клиенты не шлют полезной нагрузки, но каждый входящий кадр
	// продлевает присутствие устройства.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
			if deviceID != "" {
				g.presence.RegisterActivity(userID, deviceID, g.ttl)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			g.log.Debug("websocket closed by peer",
				"user_id", userID, "device_id", deviceID, "error", err)
			return
		case payload, ok := <-userSub.C():
			if !ok {
				return
			}
			if err := g.write(conn, payload); err != nil {
				g.log.Debug("websocket write failed", "user_id", userID, "error", err)
				return
			}
		case payload, ok := <-deviceMessages:
			if !ok {
				return
			}
			if err := g.write(conn, payload); err != nil {
				g.log.Debug("websocket write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func (g *Gateway) write(conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, payload)
}

func (g *Gateway) disconnect(conn *websocket.Conn, userID, deviceID string) {
	_ = conn.Close(websocket.StatusNormalClosure, "")

	if deviceID != "" {
		g.presence.Forget(userID, deviceID)
		g.notifier.PublishDeviceStatus(context.Background(), userID, deviceID, "offline")
	}

	g.log.Info("device disconnected", "user_id", userID, "device_id", deviceID)
}
