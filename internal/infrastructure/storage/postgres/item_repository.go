package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"termsync/internal/domain/syncitem"
)

const itemColumns = `
	id, user_id, sync_type, sync_key, data, version, is_deleted,
	source_device_id, source_device_type, conflict_data, resolved_at,
	synced_at, last_modified_at`

type ItemRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewItemRepository(pool *pgxpool.Pool, log *slog.Logger) *ItemRepository {
	return &ItemRepository{
		pool: pool,
		log:  log.With("component", "item_repository"),
	}
}

func (r *ItemRepository) Get(ctx context.Context, userID, syncType, syncKey string) (*syncitem.SyncItem, error) {
	const query = `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE user_id = $1 AND sync_type = $2 AND sync_key = $3`

	row := r.pool.QueryRow(ctx, query, userID, syncType, syncKey)

	item, err := r.scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, syncitem.ErrItemNotFound
		}
		r.log.Error("failed to get sync item",
			"user_id", userID, "sync_type", syncType, "sync_key", syncKey, "error", err)
		return nil, fmt.Errorf("get sync item: %w", err)
	}

	return item, nil
}

func (r *ItemRepository) GetByID(ctx context.Context, itemID string) (*syncitem.SyncItem, error) {
	const query = `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, itemID)

	item, err := r.scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, syncitem.ErrItemNotFound
		}
		r.log.Error("failed to get sync item by id", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("get sync item by id: %w", err)
	}

	return item, nil
}

// Create вставляет новый элемент. Гонка за одну идентичность разрешается
// на уникальном индексе: проигравший получает ErrVersionConflict и перечитывает.
func (r *ItemRepository) Create(ctx context.Context, item *syncitem.SyncItem) error {
	const query = `
		INSERT INTO sync_items (id, user_id, sync_type, sync_key, data, version, is_deleted,
		                        source_device_id, source_device_type, synced_at, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, sync_type, sync_key) DO NOTHING`

	data, err := encodeData(item.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}

	result, err := r.pool.Exec(ctx, query,
		item.ID, item.UserID, item.SyncType, item.SyncKey, data,
		item.Version, item.IsDeleted,
		item.SourceDeviceID, string(item.SourceDeviceType),
		item.SyncedAt, item.LastModifiedAt,
	)
	if err != nil {
		r.log.Error("failed to create sync item",
			"user_id", item.UserID, "sync_type", item.SyncType, "sync_key", item.SyncKey, "error", err)
		return fmt.Errorf("create sync item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return syncitem.ErrVersionConflict
	}

	return nil
}

func (r *ItemRepository) Update(ctx context.Context, item *syncitem.SyncItem, expectedVersion int) error {
	const query = `
		UPDATE sync_items
		SET data = $1, version = $2, is_deleted = $3,
			source_device_id = $4, source_device_type = $5,
			conflict_data = $6, resolved_at = $7,
			synced_at = $8, last_modified_at = $9
		WHERE id = $10 AND version = $11`

	data, err := encodeData(item.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	conflictData, err := encodeConflictData(item.ConflictData)
	if err != nil {
		return fmt.Errorf("encode conflict data: %w", err)
	}

	result, err := r.pool.Exec(ctx, query,
		data, item.Version, item.IsDeleted,
		item.SourceDeviceID, string(item.SourceDeviceType),
		conflictData, item.ResolvedAt,
		item.SyncedAt, item.LastModifiedAt,
		item.ID, expectedVersion,
	)
	if err != nil {
		r.log.Error("failed to update sync item",
			"item_id", item.ID, "user_id", item.UserID, "error", err)
		return fmt.Errorf("update sync item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return syncitem.ErrVersionConflict
	}

	return nil
}

func (r *ItemRepository) ChangesSince(ctx context.Context, userID string, since time.Time, q syncitem.ChangesQuery) ([]syncitem.SyncItem, error) {
	query := `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE user_id = $1 AND last_modified_at > $2`

	args := []any{userID, since}
	argIndex := 3

	if q.SyncType != "" {
		query += fmt.Sprintf(" AND sync_type = $%d", argIndex)
		args = append(args, q.SyncType)
		argIndex++
	}

	if q.ExcludeDeviceID != "" {
		query += fmt.Sprintf(" AND source_device_id <> $%d", argIndex)
		args = append(args, q.ExcludeDeviceID)
		argIndex++
	}

	query += " ORDER BY last_modified_at ASC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list changes", "user_id", userID, "since", since, "error", err)
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	return r.scanItems(rows)
}

func (r *ItemRepository) OpenConflicts(ctx context.Context, userID string) ([]syncitem.SyncItem, error) {
	const query = `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE user_id = $1 AND conflict_data IS NOT NULL AND resolved_at IS NULL
		ORDER BY last_modified_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("failed to list open conflicts", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list open conflicts: %w", err)
	}
	defer rows.Close()

	return r.scanItems(rows)
}

func (r *ItemRepository) Stats(ctx context.Context, userID string) (*syncitem.Stats, error) {
	const totalsQuery = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE conflict_data IS NOT NULL AND resolved_at IS NULL),
			COUNT(*) FILTER (WHERE is_deleted)
		FROM sync_items
		WHERE user_id = $1`

	stats := &syncitem.Stats{
		ByType:       make(map[string]int64),
		ByDeviceType: make(map[string]int64),
	}

	err := r.pool.QueryRow(ctx, totalsQuery, userID).
		Scan(&stats.TotalItems, &stats.OpenConflicts, &stats.Deleted)
	if err != nil {
		r.log.Error("failed to count sync items", "user_id", userID, "error", err)
		return nil, fmt.Errorf("count sync items: %w", err)
	}

	if err := r.groupCount(ctx, stats.ByType,
		`SELECT sync_type, COUNT(*) FROM sync_items WHERE user_id = $1 GROUP BY sync_type`,
		userID); err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}

	if err := r.groupCount(ctx, stats.ByDeviceType,
		`SELECT source_device_type, COUNT(*) FROM sync_items WHERE user_id = $1 GROUP BY source_device_type`,
		userID); err != nil {
		return nil, fmt.Errorf("count by device type: %w", err)
	}

	return stats, nil
}

func (r *ItemRepository) DeleteOlderThan(ctx context.Context, threshold time.Time, userID, syncType string) (int64, error) {
	query := `DELETE FROM sync_items WHERE is_deleted = TRUE AND last_modified_at < $1`

	args := []any{threshold}
	argIndex := 2

	if userID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, userID)
		argIndex++
	}

	if syncType != "" {
		query += fmt.Sprintf(" AND sync_type = $%d", argIndex)
		args = append(args, syncType)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to delete old tombstones", "threshold", threshold, "error", err)
		return 0, fmt.Errorf("delete old tombstones: %w", err)
	}

	return result.RowsAffected(), nil
}

// Вспомогательные методы

func (r *ItemRepository) groupCount(ctx context.Context, into map[string]int64, query, userID string) error {
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func (r *ItemRepository) scanItems(rows pgx.Rows) ([]syncitem.SyncItem, error) {
	var items []syncitem.SyncItem

	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *ItemRepository) scanItem(row interface {
	Scan(dest ...any) error
}) (*syncitem.SyncItem, error) {
	var item syncitem.SyncItem
	var data, conflictData []byte
	var deviceType string
	var resolvedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.UserID, &item.SyncType, &item.SyncKey, &data,
		&item.Version, &item.IsDeleted,
		&item.SourceDeviceID, &deviceType,
		&conflictData, &resolvedAt,
		&item.SyncedAt, &item.LastModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &item.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if len(conflictData) > 0 {
		if err := json.Unmarshal(conflictData, &item.ConflictData); err != nil {
			return nil, fmt.Errorf("decode conflict data: %w", err)
		}
	}
	item.SourceDeviceType = syncitem.DeviceType(deviceType)
	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}

	return &item, nil
}

// encodeData сериализует полезную нагрузку; колонка NOT NULL,
// поэтому пустая нагрузка пишется как пустой объект.
func encodeData(data map[string]any) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(data)
}

// encodeConflictData сериализует конфликтную нагрузку; nil означает SQL NULL
func encodeConflictData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}
