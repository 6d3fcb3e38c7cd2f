package sshprofile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

// Типы синхронизации для SSH-данных.
const (
	// SyncType тип элемента для профилей SSH-подключений
	SyncType = "ssh_profile"
	// KeySyncType тип элемента для метаданных SSH-ключей
	KeySyncType = "ssh_key"
)

// forbiddenFields поля, которые никогда не покидают устройство.
// Приватный материал вычищается и на приёме, и на выдаче.
var forbiddenFields = []string{"private_key", "private_key_path"}

// conflictFields поля профиля, расхождение которых считается конфликтом.
// Косметические поля (цвет, порядок сортировки) конфликтов не открывают.
var conflictFields = []string{"host", "port", "username", "auth_method"}

// ItemStore часть хранилища элементов, нужная сервису профилей
type ItemStore interface {
	ProcessBatch(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, items []syncitem.IncomingItem) *syncitem.BatchResult
	ChangesSince(ctx context.Context, userID string, since time.Time, query syncitem.ChangesQuery) ([]syncitem.SyncItem, error)
}

// Servicer интерфейс сервиса синхронизации SSH-профилей
type Servicer interface {
	// Sync принимает пакет профилей с устройства
	Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, profiles []map[string]any) (*SyncResult, error)
	// SyncKeys принимает пакет метаданных ключей с устройства
	SyncKeys(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, keys []map[string]any) (*SyncResult, error)
	// ChangesSince возвращает профили, изменённые после указанного момента
	ChangesSince(ctx context.Context, userID, excludeDeviceID string, since time.Time) ([]syncitem.SyncItem, error)
	// KeyChangesSince возвращает метаданные ключей, изменённые после указанного момента
	KeyChangesSince(ctx context.Context, userID, excludeDeviceID string, since time.Time) ([]syncitem.SyncItem, error)
}

// SyncResult итог загрузки пакета SSH-данных
type SyncResult struct {
	SyncedCount int                     `json:"synced_count"`
	FailedCount int                     `json:"failed_count"`
	Conflicts   []syncitem.ConflictInfo `json:"conflicts,omitempty"`
	Errors      []syncitem.ItemError    `json:"errors,omitempty"`
}

// Service сервис синхронизации SSH-профилей и метаданных ключей
type Service struct {
	items    ItemStore
	notifier *notify.Notifier
	log      *slog.Logger
}

// NewService создает новый сервис SSH-профилей
func NewService(items ItemStore, notifier *notify.Notifier, log *slog.Logger) *Service {
	return &Service{
		items:    items,
		notifier: notifier,
		log:      log.With("component", "ssh_profile_service"),
	}
}

// Sync принимает пакет профилей с устройства.
// Приватный материал ключей удаляется до записи в хранилище.
func (s *Service) Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, profiles []map[string]any) (*SyncResult, error) {
	return s.sync(ctx, userID, deviceID, deviceType, SyncType, profiles)
}

// SyncKeys принимает пакет метаданных ключей с устройства.
// Синхронизируются только метаданные: имя, тип, отпечаток, публичная часть.
func (s *Service) SyncKeys(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, keys []map[string]any) (*SyncResult, error) {
	return s.sync(ctx, userID, deviceID, deviceType, KeySyncType, keys)
}

func (s *Service) sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, syncType string, payloads []map[string]any) (*SyncResult, error) {
	incoming := make([]syncitem.IncomingItem, 0, len(payloads))
	for _, payload := range payloads {
		data := stripPrivateMaterial(payload)
		item := syncitem.IncomingItem{
			SyncType: syncType,
			SyncKey:  s.syncKey(syncType, userID, data),
			Data:     data,
		}
		if syncType == SyncType {
			item.ConflictFields = conflictFields
		}
		incoming = append(incoming, item)
	}

	batch := s.items.ProcessBatch(ctx, userID, deviceID, deviceType, incoming)

	if batch.Synced > 0 {
		s.notifier.PublishSyncUpdate(ctx, userID, syncType, batch.Synced, deviceID)
	}
	for _, conflict := range batch.Conflicts {
		s.notifier.PublishSyncConflict(ctx, userID, conflict.SyncKey, conflict.Report)
	}

	s.log.Info("ssh sync batch processed",
		"user_id", userID,
		"sync_type", syncType,
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

// ChangesSince возвращает профили, изменённые после указанного момента
func (s *Service) ChangesSince(ctx context.Context, userID, excludeDeviceID string, since time.Time) ([]syncitem.SyncItem, error) {
	return s.changes(ctx, userID, excludeDeviceID, SyncType, since)
}

// KeyChangesSince возвращает метаданные ключей, изменённые после указанного момента
func (s *Service) KeyChangesSince(ctx context.Context, userID, excludeDeviceID string, since time.Time) ([]syncitem.SyncItem, error) {
	return s.changes(ctx, userID, excludeDeviceID, KeySyncType, since)
}

func (s *Service) changes(ctx context.Context, userID, excludeDeviceID, syncType string, since time.Time) ([]syncitem.SyncItem, error) {
	items, err := s.items.ChangesSince(ctx, userID, since, syncitem.ChangesQuery{
		SyncType:        syncType,
		ExcludeDeviceID: excludeDeviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ssh changes: %w", err)
	}

	// Старые записи могли попасть в хранилище до введения фильтра,
	// поэтому выдача чистится повторно.
	for i := range items {
		items[i].Data = stripPrivateMaterial(items[i].Data)
		if items[i].ConflictData != nil {
			items[i].ConflictData = stripPrivateMaterial(items[i].ConflictData)
		}
	}
	return items, nil
}

// Вспомогательные методы

// stripPrivateMaterial возвращает копию данных без приватного материала ключей.
// Вложенные карты и списки обходятся рекурсивно.
func stripPrivateMaterial(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for key, value := range data {
		if isForbidden(key) {
			continue
		}
		out[key] = stripValue(value)
	}
	return out
}

func stripValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return stripPrivateMaterial(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stripValue(item)
		}
		return out
	default:
		return value
	}
}

func isForbidden(key string) bool {
	for _, f := range forbiddenFields {
		if key == f {
			return true
		}
	}
	return false
}

// syncKey строит стабильный ключ элемента. Профили адресуются по имени,
// безымянные по отпечатку параметров подключения.
func (s *Service) syncKey(syncType, userID string, data map[string]any) string {
	if name, ok := data["name"].(string); ok && name != "" {
		return fmt.Sprintf("%s_%s_%s", syncType, userID, name)
	}
	return fmt.Sprintf("%s_%s_%s", syncType, userID, profileDigest(data))
}

func profileDigest(data map[string]any) string {
	host, _ := data["host"].(string)
	username, _ := data["username"].(string)
	port := fmt.Sprintf("%v", data["port"])
	sum := sha256.Sum256([]byte(host + "|" + port + "|" + username))
	return "profile_" + hex.EncodeToString(sum[:])[:12]
}
