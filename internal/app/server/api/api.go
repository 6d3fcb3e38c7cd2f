//синхронизация истории команд, SSH-профилей и настроек между устройствами;
//разрешение конфликтов параллельных правок;
//уведомление подключённых устройств о чужих изменениях.

//POST /api/sync/upload                     # Загрузить пакет элементов
//POST /api/sync/changes                    # Забрать чужие изменения
//GET  /api/sync/stats                      # Статистика по пользователю
//GET  /api/sync/conflicts                  # Открытые конфликты
//POST /api/sync/conflicts/{id}/resolve     # Разрешить конфликт
//POST /api/sync/commands                   # Синхронизация истории команд
//GET  /api/sync/commands/changes           # Новые команды
//POST /api/sync/ssh-profiles               # Синхронизация SSH-профилей
//GET  /api/sync/ssh-profiles/changes       # Изменённые профили
//POST /api/sync/settings                   # Снимок настроек
//GET  /api/sync/settings                   # Действующие настройки
//POST /api/sync/settings/diff              # Расхождения с сервером
//GET  /api/sync/settings/export            # Экспорт настроек
//POST /api/sync/settings/import            # Импорт настроек
//POST /api/devices/register                # Регистрация устройства
//GET  /api/devices/active                  # Активные устройства
//GET  /ws                                  # Поток событий синхронизации

package api

import (
	"log/slog"
	"time"

	commandAPI "termsync/internal/app/server/api/http/command"
	deviceAPI "termsync/internal/app/server/api/http/device"
	healthAPI "termsync/internal/app/server/api/http/health"
	"termsync/internal/app/server/api/http/middleware"
	"termsync/internal/app/server/api/http/middleware/identity"
	"termsync/internal/app/server/api/http/middleware/logger"
	settingsAPI "termsync/internal/app/server/api/http/settings"
	sshprofileAPI "termsync/internal/app/server/api/http/sshprofile"
	syncAPI "termsync/internal/app/server/api/http/sync"
	"termsync/internal/app/server/api/ws"
	"termsync/internal/app/server/config"
	"termsync/internal/domain/command"
	"termsync/internal/domain/resolver"
	"termsync/internal/domain/settings"
	"termsync/internal/domain/sshprofile"
	"termsync/internal/domain/syncitem"
	"termsync/internal/infrastructure/broker/memory"
	"termsync/internal/notify"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Health     *healthAPI.Handler
	Sync       *syncAPI.Handler
	Command    *commandAPI.Handler
	SSHProfile *sshprofileAPI.Handler
	Settings   *settingsAPI.Handler
	Device     *deviceAPI.Handler
}

// New создает *chi.Mux со ВСЕМИ операциями через huma.Register и
// websocket-шлюзом. Возвращаемая функция гасит брокер уведомлений.
func New(repo syncitem.Repository, cfg *config.Config, log *slog.Logger) (*chi.Mux, func()) {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Termsync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"identity": {Type: "apiKey", In: "header", Name: identity.UserIDHeader},
	}

	API := humachi.New(mux, humaConfig)

	broker := memory.New(log)
	presence := notify.NewPresenceTracker()
	notifier := notify.NewNotifier(broker, log)
	presenceTTL := time.Duration(cfg.Sync.PresenceTTLSeconds) * time.Second

	h := handlers(repo, cfg, presence, notifier, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Command.SetupRoutes(API)
	h.SSHProfile.SetupRoutes(API)
	h.Settings.SetupRoutes(API)
	h.Device.SetupRoutes(API)

	gateway := ws.NewGateway(broker, notifier, presence, presenceTTL, log)
	mux.Get("/ws", gateway.Handler())

	return mux, broker.Shutdown
}

func handlers(
	repo syncitem.Repository,
	cfg *config.Config,
	presence *notify.PresenceTracker,
	notifier *notify.Notifier,
	log *slog.Logger,
) *Handlers {
	resolverService := resolver.NewService(log)
	itemService := syncitem.NewService(repo, resolverService, log, &syncitem.ServiceConfig{
		ConflictWindow:   time.Duration(cfg.Sync.ConflictWindowSeconds) * time.Second,
		ChangesLimit:     cfg.Sync.ChangesLimit,
		CleanupAfterDays: cfg.Sync.CleanupAfterDays,
	})

	identityMW := identity.New(log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(itemService, notifier, presence, log, middlewares.GetAllAndClear())

	commandService := command.NewService(itemService, notifier, log)
	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	commandHandler := commandAPI.NewHandler(commandService, log, middlewares.GetAllAndClear())

	sshService := sshprofile.NewService(itemService, notifier, log)
	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	sshHandler := sshprofileAPI.NewHandler(sshService, log, middlewares.GetAllAndClear())

	settingsService := settings.NewService(itemService, notifier, log, nil)
	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	settingsHandler := settingsAPI.NewHandler(settingsService, log, middlewares.GetAllAndClear())

	presenceTTL := time.Duration(cfg.Sync.PresenceTTLSeconds) * time.Second
	middlewares.Add(identityMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	deviceHandler := deviceAPI.NewHandler(presence, notifier, presenceTTL, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:     healthHandler,
		Sync:       syncHandler,
		Command:    commandHandler,
		SSHProfile: sshHandler,
		Settings:   settingsHandler,
		Device:     deviceHandler,
	}
}
