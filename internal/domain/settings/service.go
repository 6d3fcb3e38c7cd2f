package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"termsync/internal/domain/resolver"
	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

// SyncType тип элемента для пользовательских настроек
const SyncType = "user_setting"

// ExportFormatVersion версия формата экспорта настроек
const ExportFormatVersion = 1

// Config параметры сервиса настроек
type Config struct {
	// AllowedKeys белый список синхронизируемых ключей
	AllowedKeys []string
	// Defaults значения по умолчанию для части ключей
	Defaults map[string]any
}

// DefaultConfig возвращает стандартный набор ключей настроек терминала
func DefaultConfig() *Config {
	return &Config{
		AllowedKeys: []string{
			"ai_suggestions_enabled",
			"autocomplete_enabled",
			"color_scheme",
			"command_history_size",
			"font_family",
			"font_size",
			"keyboard_shortcuts",
			"notification_preferences",
			"preferred_editor",
			"privacy_settings",
			"ssh_connection_timeout",
			"terminal_theme",
		},
		Defaults: map[string]any{
			"ai_suggestions_enabled": true,
			"autocomplete_enabled":   true,
			"command_history_size":   10000,
			"font_size":              14,
			"ssh_connection_timeout": 30,
			"terminal_theme":         "dark",
		},
	}
}

// ItemStore часть хранилища элементов, нужная сервису настроек
type ItemStore interface {
	ProcessBatch(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, items []syncitem.IncomingItem) *syncitem.BatchResult
	ChangesSince(ctx context.Context, userID string, since time.Time, query syncitem.ChangesQuery) ([]syncitem.SyncItem, error)
	MarkDeleted(ctx context.Context, userID, syncType, syncKey, deviceID string, deviceType syncitem.DeviceType) (bool, error)
}

// Servicer интерфейс сервиса синхронизации настроек
type Servicer interface {
	// Sync принимает снимок настроек с устройства
	Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, values map[string]any) (*SyncResult, error)
	// Current возвращает действующие настройки пользователя поверх значений по умолчанию
	Current(ctx context.Context, userID string) (map[string]any, error)
	// Diff сравнивает снимок клиента с состоянием на сервере
	Diff(ctx context.Context, userID string, incoming map[string]any) (map[string]DiffEntry, error)
	// Export выгружает настройки в переносимый формат
	Export(ctx context.Context, userID string) (*Export, error)
	// Import загружает ранее экспортированные настройки
	Import(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, payload map[string]any, overwrite bool) (*SyncResult, error)
}

// SyncResult итог загрузки снимка настроек
type SyncResult struct {
	SyncedCount int                     `json:"synced_count"`
	FailedCount int                     `json:"failed_count"`
	Conflicts   []syncitem.ConflictInfo `json:"conflicts,omitempty"`
	Errors      []syncitem.ItemError    `json:"errors,omitempty"`
}

// DiffEntry расхождение одного ключа между клиентом и сервером
type DiffEntry struct {
	Current  any `json:"current"`
	Incoming any `json:"incoming"`
}

// Export переносимый снимок настроек пользователя
type Export struct {
	FormatVersion int            `json:"format_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Settings      map[string]any `json:"settings"`
}

// Service сервис синхронизации пользовательских настроек
type Service struct {
	items    ItemStore
	notifier *notify.Notifier
	log      *slog.Logger
	allowed  map[string]struct{}
	keys     []string
	defaults map[string]any
}

// NewService создает новый сервис настроек
func NewService(items ItemStore, notifier *notify.Notifier, log *slog.Logger, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}

	allowed := make(map[string]struct{}, len(config.AllowedKeys))
	keys := make([]string, 0, len(config.AllowedKeys))
	for _, key := range config.AllowedKeys {
		if _, ok := allowed[key]; ok {
			continue
		}
		allowed[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Service{
		items:    items,
		notifier: notifier,
		log:      log.With("component", "settings_service"),
		allowed:  allowed,
		keys:     keys,
		defaults: config.Defaults,
	}
}

// Sync принимает снимок настроек с устройства.
// Ключи вне белого списка молча отбрасываются.
func (s *Service) Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, values map[string]any) (*SyncResult, error) {
	accepted := make([]string, 0, len(values))
	dropped := make([]string, 0)
	for key := range values {
		if _, ok := s.allowed[key]; ok {
			accepted = append(accepted, key)
		} else {
			dropped = append(dropped, key)
		}
	}
	sort.Strings(accepted)
	if len(dropped) > 0 {
		sort.Strings(dropped)
		s.log.Debug("dropping unknown setting keys", "user_id", userID, "keys", dropped)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	incoming := make([]syncitem.IncomingItem, 0, len(accepted))
	for _, key := range accepted {
		incoming = append(incoming, syncitem.IncomingItem{
			SyncType: SyncType,
			SyncKey:  s.syncKey(userID, key),
			Data: map[string]any{
				"key":       key,
				"value":     values[key],
				"timestamp": now,
			},
		})
	}

	batch := s.items.ProcessBatch(ctx, userID, deviceID, deviceType, incoming)

	if batch.Synced > 0 {
		s.notifier.PublishSyncUpdate(ctx, userID, SyncType, batch.Synced, deviceID)
	}
	for _, conflict := range batch.Conflicts {
		s.notifier.PublishSyncConflict(ctx, userID, conflict.SyncKey, conflict.Report)
	}

	s.log.Info("settings batch processed",
		"user_id", userID,
		"synced", batch.Synced,
		"conflicted", batch.Conflicted,
		"failed", batch.Failed)

	return &SyncResult{
		SyncedCount: batch.Synced,
		FailedCount: batch.Failed,
		Conflicts:   batch.Conflicts,
		Errors:      batch.Errors,
	}, nil
}

// Current возвращает действующие настройки: значения по умолчанию,
// перекрытые сохранёнными неудалёнными элементами.
func (s *Service) Current(ctx context.Context, userID string) (map[string]any, error) {
	out := make(map[string]any, len(s.defaults))
	for key, value := range s.defaults {
		out[key] = value
	}

	items, err := s.items.ChangesSince(ctx, userID, time.Time{}, syncitem.ChangesQuery{SyncType: SyncType})
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, item := range items {
		if item.IsDeleted {
			continue
		}
		key, ok := item.Data["key"].(string)
		if !ok {
			continue
		}
		if _, allowed := s.allowed[key]; !allowed {
			continue
		}
		out[key] = item.Data["value"]
	}
	return out, nil
}

// Diff сравнивает снимок клиента с состоянием на сервере.
// Возвращаются только разрешённые ключи с отличающимися значениями.
func (s *Service) Diff(ctx context.Context, userID string, incoming map[string]any) (map[string]DiffEntry, error) {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	diff := make(map[string]DiffEntry)
	for key, value := range incoming {
		if _, ok := s.allowed[key]; !ok {
			continue
		}
		if resolver.Equal(current[key], value) {
			continue
		}
		diff[key] = DiffEntry{Current: current[key], Incoming: value}
	}
	return diff, nil
}

// Export выгружает настройки в переносимый формат
func (s *Service) Export(ctx context.Context, userID string) (*Export, error) {
	current, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Export{
		FormatVersion: ExportFormatVersion,
		ExportedAt:    time.Now().UTC(),
		Settings:      current,
	}, nil
}

// Import загружает ранее экспортированные настройки. Принимается как полный
// конверт экспорта, так и голая карта ключ-значение. При overwrite ключи,
// отсутствующие в импорте, помечаются удалёнными.
func (s *Service) Import(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, payload map[string]any, overwrite bool) (*SyncResult, error) {
	values := payload
	if nested, ok := payload["settings"].(map[string]any); ok {
		values = nested
		if version, present := payload["format_version"]; present && !versionMatches(version) {
			s.log.Warn("importing settings from a different format version",
				"user_id", userID, "format_version", version)
		}
	}

	if overwrite {
		for _, key := range s.keys {
			if _, err := s.items.MarkDeleted(ctx, userID, SyncType, s.syncKey(userID, key), deviceID, deviceType); err != nil {
				return nil, fmt.Errorf("failed to clear setting %s: %w", key, err)
			}
		}
	}

	return s.Sync(ctx, userID, deviceID, deviceType, values)
}

// Вспомогательные методы

func (s *Service) syncKey(userID, key string) string {
	return fmt.Sprintf("%s_%s_%s", SyncType, userID, key)
}

// versionMatches сверяет версию формата. После JSON-декодирования
// число приходит как float64.
func versionMatches(version any) bool {
	switch v := version.(type) {
	case int:
		return v == ExportFormatVersion
	case float64:
		return int(v) == ExportFormatVersion
	default:
		return false
	}
}
