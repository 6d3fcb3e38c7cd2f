package syncitem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"termsync/internal/domain/resolver"
)

// Servicer — операции над элементами синхронизации.
type Servicer interface {
	// Get возвращает элемент по идентичности.
	Get(ctx context.Context, userID, syncType, syncKey string) (*SyncItem, error)
	// GetByID возвращает элемент по идентификатору.
	GetByID(ctx context.Context, itemID string) (*SyncItem, error)
	// CreateOrUpdate создаёт элемент или накатывает новую версию поверх существующего.
	CreateOrUpdate(ctx context.Context, userID string, incoming IncomingItem, deviceID string, deviceType DeviceType) (*SyncItem, error)
	// MarkDeleted ставит tombstone; возвращает false, если элемента нет.
	MarkDeleted(ctx context.Context, userID, syncType, syncKey, deviceID string, deviceType DeviceType) (bool, error)
	// ResolveConflict закрывает открытый конфликт выбранными данными.
	ResolveConflict(ctx context.Context, itemID string, chosen map[string]any, deviceID string, deviceType DeviceType) (*SyncItem, error)
	// ChangesSince возвращает изменения пользователя после отметки времени.
	ChangesSince(ctx context.Context, userID string, since time.Time, query ChangesQuery) ([]SyncItem, error)
	// OpenConflicts возвращает неразрешённые конфликты пользователя.
	OpenConflicts(ctx context.Context, userID string) ([]SyncItem, error)
	// Stats — сводка хранилища по пользователю.
	Stats(ctx context.Context, userID string) (*Stats, error)
	// Cleanup физически удаляет tombstone-записи старше порога в днях.
	Cleanup(ctx context.Context, olderThanDays int, userID, syncType string) (int64, error)
	// ProcessBatch обрабатывает батч поэлементно, без общей транзакции.
	ProcessBatch(ctx context.Context, userID, deviceID string, deviceType DeviceType, items []IncomingItem) *BatchResult
}

const (
	defaultConflictWindow   = 5 * time.Second
	defaultChangesLimit     = 500
	defaultCleanupAfterDays = 30
)

// ServiceConfig — настройки сервиса; нулевые значения заменяются умолчаниями.
type ServiceConfig struct {
	ConflictWindow   time.Duration
	ChangesLimit     int
	CleanupAfterDays int
}

type Service struct {
	repo     Repository
	resolver *resolver.Service
	log      *slog.Logger
	config   ServiceConfig
}

func NewService(repo Repository, res *resolver.Service, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.ConflictWindow <= 0 {
		config.ConflictWindow = defaultConflictWindow
	}
	if config.ChangesLimit <= 0 {
		config.ChangesLimit = defaultChangesLimit
	}
	if config.CleanupAfterDays <= 0 {
		config.CleanupAfterDays = defaultCleanupAfterDays
	}

	return &Service{
		repo:     repo,
		resolver: res,
		log:      log.With("component", "sync_item_service"),
		config:   *config,
	}
}

func (s *Service) Get(ctx context.Context, userID, syncType, syncKey string) (*SyncItem, error) {
	item, err := s.repo.Get(ctx, userID, syncType, syncKey)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		s.log.Error("failed to get sync item", "user_id", userID, "sync_key", syncKey, "error", err)
		return nil, fmt.Errorf("get sync item: %w", err)
	}

	return item, nil
}

func (s *Service) GetByID(ctx context.Context, itemID string) (*SyncItem, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		s.log.Error("failed to get sync item", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("get sync item: %w", err)
	}

	return item, nil
}

func (s *Service) CreateOrUpdate(ctx context.Context, userID string, incoming IncomingItem, deviceID string, deviceType DeviceType) (*SyncItem, error) {
	return s.createOrUpdate(ctx, userID, incoming, deviceID, deviceType, true)
}

// createOrUpdate выполняет одну попытку записи. При проигрыше CAS-гонки
// перечитывает элемент и повторяет ровно один раз: повторная попытка
// почти всегда попадает в окно конфликта и фиксирует его явно.
func (s *Service) createOrUpdate(ctx context.Context, userID string, incoming IncomingItem, deviceID string, deviceType DeviceType, retry bool) (*SyncItem, error) {
	existing, err := s.repo.Get(ctx, userID, incoming.SyncType, incoming.SyncKey)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		s.log.Error("failed to load sync item", "user_id", userID, "sync_key", incoming.SyncKey, "error", err)
		return nil, fmt.Errorf("load sync item: %w", err)
	}

	now := time.Now().UTC()

	if existing == nil {
		item := &SyncItem{
			ID:               newItemID(userID, incoming.SyncType, incoming.SyncKey),
			UserID:           userID,
			SyncType:         incoming.SyncType,
			SyncKey:          incoming.SyncKey,
			Data:             incoming.Data,
			Version:          1,
			SourceDeviceID:   deviceID,
			SourceDeviceType: deviceType,
			SyncedAt:         now,
			LastModifiedAt:   now,
		}

		err = s.repo.Create(ctx, item)
		if err == nil {
			return item, nil
		}
		if errors.Is(err, ErrVersionConflict) && retry {
			// проиграли гонку создания — повторяем как обновление
			return s.createOrUpdate(ctx, userID, incoming, deviceID, deviceType, false)
		}
		s.log.Error("failed to create sync item", "user_id", userID, "sync_key", incoming.SyncKey, "error", err)
		return nil, fmt.Errorf("create sync item: %w", err)
	}

	expected := existing.Version

	if s.isConflictingWrite(existing, incoming, deviceID, now) {
		// текущие данные остаются локальной стороной конфликта
		existing.ConflictData = incoming.Data
		existing.ResolvedAt = nil
	} else {
		existing.Data = incoming.Data
		existing.IsDeleted = false
		existing.SourceDeviceID = deviceID
		existing.SourceDeviceType = deviceType
	}
	existing.Version++
	existing.LastModifiedAt = now

	err = s.repo.Update(ctx, existing, expected)
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, ErrVersionConflict) && retry {
		return s.createOrUpdate(ctx, userID, incoming, deviceID, deviceType, false)
	}
	s.log.Error("failed to update sync item", "user_id", userID, "sync_key", incoming.SyncKey, "error", err)
	return nil, fmt.Errorf("update sync item: %w", err)
}

// isConflictingWrite — эвристика конкурирующей записи: другой источник,
// свежая модификация в пределах окна и отличающийся payload.
func (s *Service) isConflictingWrite(existing *SyncItem, incoming IncomingItem, deviceID string, now time.Time) bool {
	if existing.SourceDeviceID == deviceID {
		return false
	}
	if now.Sub(existing.LastModifiedAt) > s.config.ConflictWindow {
		return false
	}

	if len(incoming.ConflictFields) > 0 {
		for _, field := range incoming.ConflictFields {
			if !resolver.Equal(existing.Data[field], incoming.Data[field]) {
				return true
			}
		}
		return false
	}

	return !resolver.Equal(existing.Data, incoming.Data)
}

func (s *Service) MarkDeleted(ctx context.Context, userID, syncType, syncKey, deviceID string, deviceType DeviceType) (bool, error) {
	existing, err := s.repo.Get(ctx, userID, syncType, syncKey)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		s.log.Error("failed to load sync item for deletion", "user_id", userID, "sync_key", syncKey, "error", err)
		return false, fmt.Errorf("load sync item: %w", err)
	}

	now := time.Now().UTC()
	expected := existing.Version
	// tombstone: payload и идентичность сохраняются для оффлайн-устройств
	existing.IsDeleted = true
	existing.SourceDeviceID = deviceID
	existing.SourceDeviceType = deviceType
	existing.Version++
	existing.LastModifiedAt = now

	if err := s.repo.Update(ctx, existing, expected); err != nil {
		s.log.Error("failed to mark sync item deleted", "user_id", userID, "sync_key", syncKey, "error", err)
		return false, fmt.Errorf("mark sync item deleted: %w", err)
	}

	return true, nil
}

func (s *Service) ResolveConflict(ctx context.Context, itemID string, chosen map[string]any, deviceID string, deviceType DeviceType) (*SyncItem, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		s.log.Error("failed to load sync item for resolution", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("load sync item: %w", err)
	}

	if !item.HasOpenConflict() {
		return nil, ErrNoOpenConflict
	}

	now := time.Now().UTC()
	expected := item.Version
	item.Data = chosen
	item.ConflictData = nil
	item.ResolvedAt = &now
	item.SourceDeviceID = deviceID
	item.SourceDeviceType = deviceType
	item.Version++
	item.LastModifiedAt = now

	if err := s.repo.Update(ctx, item, expected); err != nil {
		s.log.Error("failed to resolve sync conflict", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("resolve sync conflict: %w", err)
	}

	s.log.Info("sync conflict resolved", "item_id", itemID, "sync_key", item.SyncKey, "device_id", deviceID)

	return item, nil
}

func (s *Service) ChangesSince(ctx context.Context, userID string, since time.Time, query ChangesQuery) ([]SyncItem, error) {
	if query.Limit <= 0 || query.Limit > s.config.ChangesLimit {
		query.Limit = s.config.ChangesLimit
	}

	items, err := s.repo.ChangesSince(ctx, userID, since, query)
	if err != nil {
		s.log.Error("failed to list changes", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list changes: %w", err)
	}

	return items, nil
}

func (s *Service) OpenConflicts(ctx context.Context, userID string) ([]SyncItem, error) {
	items, err := s.repo.OpenConflicts(ctx, userID)
	if err != nil {
		s.log.Error("failed to list open conflicts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list open conflicts: %w", err)
	}

	return items, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		s.log.Error("failed to collect sync stats", "user_id", userID, "error", err)
		return nil, fmt.Errorf("collect sync stats: %w", err)
	}

	return stats, nil
}

func (s *Service) Cleanup(ctx context.Context, olderThanDays int, userID, syncType string) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = s.config.CleanupAfterDays
	}
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	removed, err := s.repo.DeleteOlderThan(ctx, threshold, userID, syncType)
	if err != nil {
		s.log.Error("failed to clean up tombstones", "error", err)
		return 0, fmt.Errorf("clean up tombstones: %w", err)
	}

	if removed > 0 {
		s.log.Info("retention cleanup removed tombstones", "removed", removed, "older_than_days", olderThanDays)
	}

	return removed, nil
}

func (s *Service) ProcessBatch(ctx context.Context, userID, deviceID string, deviceType DeviceType, items []IncomingItem) *BatchResult {
	result := &BatchResult{}

	for i, incoming := range items {
		if err := ctx.Err(); err != nil {
			// отмена не откатывает уже записанные элементы
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Index: i, SyncKey: incoming.SyncKey, Error: err.Error()})
			continue
		}

		if incoming.Deleted {
			if _, err := s.MarkDeleted(ctx, userID, incoming.SyncType, incoming.SyncKey, deviceID, deviceType); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, ItemError{Index: i, SyncKey: incoming.SyncKey, Error: err.Error()})
				continue
			}
			result.Synced++
			continue
		}

		item, err := s.createOrUpdate(ctx, userID, incoming, deviceID, deviceType, true)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Index: i, SyncKey: incoming.SyncKey, Error: err.Error()})
			continue
		}

		if item.HasOpenConflict() {
			result.Conflicted++
			result.Conflicts = append(result.Conflicts, ConflictInfo{
				ItemID:   item.ID,
				SyncType: item.SyncType,
				SyncKey:  item.SyncKey,
				Report:   s.resolver.CreateReport(item.Data, item.ConflictData, item.SyncKey),
			})
			continue
		}

		result.Synced++
	}

	return result
}

// Вспомогательные методы

func newItemID(userID, syncType, syncKey string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", userID, syncType, syncKey, time.Now().UnixNano())))
	return "item_" + hex.EncodeToString(sum[:])[:16]
}
