package command

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"termsync/internal/domain/syncitem"
	"termsync/internal/notify"
)

// SyncType — тип элементов истории команд в хранилище синхронизации.
const SyncType = "command"

// ItemStore — операции хранилища, нужные синхронизации команд.
type ItemStore interface {
	ProcessBatch(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, items []syncitem.IncomingItem) *syncitem.BatchResult
	ChangesSince(ctx context.Context, userID string, since time.Time, query syncitem.ChangesQuery) ([]syncitem.SyncItem, error)
}

// Servicer — синхронизация истории команд терминала.
type Servicer interface {
	// Sync загружает батч команд, отбрасывая точные дубликаты.
	Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, commands []map[string]any) (*SyncResult, error)
	// ChangesSince возвращает команды, изменённые после отметки времени,
	// кроме внесённых самим запрашивающим устройством.
	ChangesSince(ctx context.Context, userID, deviceID string, since time.Time) ([]syncitem.SyncItem, error)
}

// SyncResult — итог синхронизации батча команд.
type SyncResult struct {
	SyncedCount       int                     `json:"synced_count"`
	DuplicatesRemoved int                     `json:"duplicates_removed"`
	FailedCount       int                     `json:"failed_count,omitempty"`
	Conflicts         []syncitem.ConflictInfo `json:"conflicts,omitempty"`
	Errors            []syncitem.ItemError    `json:"errors,omitempty"`
}

type Service struct {
	items    ItemStore
	notifier *notify.Notifier
	log      *slog.Logger
}

func NewService(items ItemStore, notifier *notify.Notifier, log *slog.Logger) *Service {
	return &Service{
		items:    items,
		notifier: notifier,
		log:      log.With("component", "command_service"),
	}
}

func (s *Service) Sync(ctx context.Context, userID, deviceID string, deviceType syncitem.DeviceType, commands []map[string]any) (*SyncResult, error) {
	unique, removed := dedupe(commands)

	incoming := make([]syncitem.IncomingItem, 0, len(unique))
	for _, cmd := range unique {
		incoming = append(incoming, syncitem.IncomingItem{
			SyncType: SyncType,
			SyncKey:  commandSyncKey(userID, cmd),
			Data:     cmd,
		})
	}

	batch := s.items.ProcessBatch(ctx, userID, deviceID, deviceType, incoming)

	if batch.Synced > 0 {
		s.notifier.PublishSyncUpdate(ctx, userID, SyncType, batch.Synced, deviceID)
	}
	// конфликты истории не разрешаются автоматически, только накапливаются
	for _, conflict := range batch.Conflicts {
		s.notifier.PublishSyncConflict(ctx, userID, conflict.SyncKey, conflict.Report)
	}

	s.log.Info("command history synced",
		"user_id", userID,
		"device_id", deviceID,
		"synced", batch.Synced,
		"duplicates_removed", removed,
		"failed", batch.Failed)

	return &SyncResult{
		SyncedCount:       batch.Synced,
		DuplicatesRemoved: removed,
		FailedCount:       batch.Failed,
		Conflicts:         batch.Conflicts,
		Errors:            batch.Errors,
	}, nil
}

func (s *Service) ChangesSince(ctx context.Context, userID, deviceID string, since time.Time) ([]syncitem.SyncItem, error) {
	items, err := s.items.ChangesSince(ctx, userID, since, syncitem.ChangesQuery{
		SyncType:        SyncType,
		ExcludeDeviceID: deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load command changes: %w", err)
	}

	return items, nil
}

// Вспомогательные методы

// dedupe отбрасывает точные дубликаты по паре (command, timestamp);
// нечёткого сравнения текста нет намеренно.
func dedupe(commands []map[string]any) ([]map[string]any, int) {
	unique := make([]map[string]any, 0, len(commands))
	seen := make(map[string]struct{}, len(commands))

	for _, cmd := range commands {
		text, _ := cmd["command"].(string)
		ts, _ := cmd["timestamp"].(string)
		key := text + "\x00" + ts
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, cmd)
	}

	return unique, len(commands) - len(unique)
}

// commandSyncKey строит ключ от пользователя и отметки времени команды;
// при отсутствии отметки берётся стабильный дайджест payload.
func commandSyncKey(userID string, cmd map[string]any) string {
	ts, ok := cmd["timestamp"].(string)
	if !ok || ts == "" {
		ts = payloadDigest(cmd)
	}

	return fmt.Sprintf("command_%s_%s", userID, ts)
}

func payloadDigest(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])[:12]
}
