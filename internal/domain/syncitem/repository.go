package syncitem

import (
	"context"
	"time"
)

// Repository — контракт хранилища элементов синхронизации.
type Repository interface {
	// Get возвращает элемент по идентичности (user, type, key).
	Get(ctx context.Context, userID, syncType, syncKey string) (*SyncItem, error)
	// GetByID возвращает элемент по суррогатному идентификатору.
	GetByID(ctx context.Context, itemID string) (*SyncItem, error)
	// Create сохраняет новый элемент; занятая идентичность отдаёт ErrVersionConflict.
	Create(ctx context.Context, item *SyncItem) error
	// Update записывает элемент, только если версия в хранилище равна expectedVersion.
	Update(ctx context.Context, item *SyncItem, expectedVersion int) error
	// ChangesSince возвращает изменения после отметки времени по возрастанию last_modified_at.
	ChangesSince(ctx context.Context, userID string, since time.Time, query ChangesQuery) ([]SyncItem, error)
	// OpenConflicts возвращает элементы с неразрешёнными конфликтами.
	OpenConflicts(ctx context.Context, userID string) ([]SyncItem, error)
	// Stats считает сводку по элементам пользователя.
	Stats(ctx context.Context, userID string) (*Stats, error)
	// DeleteOlderThan физически удаляет tombstone-записи старше порога;
	// userID и syncType пустыми строками снимают соответствующий фильтр.
	DeleteOlderThan(ctx context.Context, threshold time.Time, userID, syncType string) (int64, error)
}
