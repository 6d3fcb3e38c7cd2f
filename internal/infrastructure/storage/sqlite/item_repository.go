package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"termsync/internal/domain/syncitem"
)

// timeLayout — фиксированная ширина дробной части: лексикографический
// порядок строк в колонках времени совпадает с хронологическим.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const itemColumns = `
	id, user_id, sync_type, sync_key, data, version, is_deleted,
	source_device_id, source_device_type, conflict_data, resolved_at,
	synced_at, last_modified_at`

type ItemRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewItemRepository(db *sql.DB, log *slog.Logger) *ItemRepository {
	return &ItemRepository{
		db:  db,
		log: log.With("component", "item_repository"),
	}
}

func (r *ItemRepository) Get(ctx context.Context, userID, syncType, syncKey string) (*syncitem.SyncItem, error) {
	const query = `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE user_id = ? AND sync_type = ? AND sync_key = ?`

	row := r.db.QueryRowContext(ctx, query, userID, syncType, syncKey)

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
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, itemID)

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

// Create вставляет новый элемент. Гонка за одну идентичность
// гасится на уникальном индексе через INSERT OR IGNORE.
func (r *ItemRepository) Create(ctx context.Context, item *syncitem.SyncItem) error {
	const query = `
		INSERT OR IGNORE INTO sync_items (id, user_id, sync_type, sync_key, data, version, is_deleted,
		                                  source_device_id, source_device_type, synced_at, last_modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	data, err := encodeData(item.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.SyncType, item.SyncKey, data,
		item.Version, item.IsDeleted,
		item.SourceDeviceID, string(item.SourceDeviceType),
		formatTime(item.SyncedAt), formatTime(item.LastModifiedAt),
	)
	if err != nil {
		r.log.Error("failed to create sync item",
			"user_id", item.UserID, "sync_type", item.SyncType, "sync_key", item.SyncKey, "error", err)
		return fmt.Errorf("create sync item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create sync item: %w", err)
	}
	if affected == 0 {
		return syncitem.ErrVersionConflict
	}

	return nil
}

func (r *ItemRepository) Update(ctx context.Context, item *syncitem.SyncItem, expectedVersion int) error {
	const query = `
		UPDATE sync_items
		SET data = ?, version = ?, is_deleted = ?,
			source_device_id = ?, source_device_type = ?,
			conflict_data = ?, resolved_at = ?,
			synced_at = ?, last_modified_at = ?
		WHERE id = ? AND version = ?`

	data, err := encodeData(item.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	conflictData, err := encodeConflictData(item.ConflictData)
	if err != nil {
		return fmt.Errorf("encode conflict data: %w", err)
	}

	var resolvedAt sql.NullString
	if item.ResolvedAt != nil {
		resolvedAt = sql.NullString{String: formatTime(*item.ResolvedAt), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		data, item.Version, item.IsDeleted,
		item.SourceDeviceID, string(item.SourceDeviceType),
		conflictData, resolvedAt,
		formatTime(item.SyncedAt), formatTime(item.LastModifiedAt),
		item.ID, expectedVersion,
	)
	if err != nil {
		r.log.Error("failed to update sync item",
			"item_id", item.ID, "user_id", item.UserID, "error", err)
		return fmt.Errorf("update sync item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sync item: %w", err)
	}
	if affected == 0 {
		return syncitem.ErrVersionConflict
	}

	return nil
}

func (r *ItemRepository) ChangesSince(ctx context.Context, userID string, since time.Time, q syncitem.ChangesQuery) ([]syncitem.SyncItem, error) {
	query := `
		SELECT` + itemColumns + `
		FROM sync_items
		WHERE user_id = ? AND last_modified_at > ?`

	args := []any{userID, formatTime(since)}

	if q.SyncType != "" {
		query += " AND sync_type = ?"
		args = append(args, q.SyncType)
	}

	if q.ExcludeDeviceID != "" {
		query += " AND source_device_id <> ?"
		args = append(args, q.ExcludeDeviceID)
	}

	query += " ORDER BY last_modified_at ASC"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
		WHERE user_id = ? AND conflict_data IS NOT NULL AND resolved_at IS NULL
		ORDER BY last_modified_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
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
			COALESCE(SUM(CASE WHEN conflict_data IS NOT NULL AND resolved_at IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_deleted THEN 1 ELSE 0 END), 0)
		FROM sync_items
		WHERE user_id = ?`

	stats := &syncitem.Stats{
		ByType:       make(map[string]int64),
		ByDeviceType: make(map[string]int64),
	}

	err := r.db.QueryRowContext(ctx, totalsQuery, userID).
		Scan(&stats.TotalItems, &stats.OpenConflicts, &stats.Deleted)
	if err != nil {
		r.log.Error("failed to count sync items", "user_id", userID, "error", err)
		return nil, fmt.Errorf("count sync items: %w", err)
	}

	if err := r.groupCount(ctx, stats.ByType,
		`SELECT sync_type, COUNT(*) FROM sync_items WHERE user_id = ? GROUP BY sync_type`,
		userID); err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}

	if err := r.groupCount(ctx, stats.ByDeviceType,
		`SELECT source_device_type, COUNT(*) FROM sync_items WHERE user_id = ? GROUP BY source_device_type`,
		userID); err != nil {
		return nil, fmt.Errorf("count by device type: %w", err)
	}

	return stats, nil
}

func (r *ItemRepository) DeleteOlderThan(ctx context.Context, threshold time.Time, userID, syncType string) (int64, error) {
	query := `DELETE FROM sync_items WHERE is_deleted = 1 AND last_modified_at < ?`

	args := []any{formatTime(threshold)}

	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if syncType != "" {
		query += " AND sync_type = ?"
		args = append(args, syncType)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to delete old tombstones", "threshold", threshold, "error", err)
		return 0, fmt.Errorf("delete old tombstones: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old tombstones: %w", err)
	}

	return removed, nil
}

// Вспомогательные методы

func (r *ItemRepository) groupCount(ctx context.Context, into map[string]int64, query, userID string) error {
	rows, err := r.db.QueryContext(ctx, query, userID)
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

func (r *ItemRepository) scanItems(rows *sql.Rows) ([]syncitem.SyncItem, error) {
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
	var data, deviceType, syncedAt, lastModifiedAt string
	var conflictData, resolvedAt sql.NullString

	err := row.Scan(
		&item.ID, &item.UserID, &item.SyncType, &item.SyncKey, &data,
		&item.Version, &item.IsDeleted,
		&item.SourceDeviceID, &deviceType,
		&conflictData, &resolvedAt,
		&syncedAt, &lastModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if data != "" {
		if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if conflictData.Valid {
		if err := json.Unmarshal([]byte(conflictData.String), &item.ConflictData); err != nil {
			return nil, fmt.Errorf("decode conflict data: %w", err)
		}
	}
	item.SourceDeviceType = syncitem.DeviceType(deviceType)

	if item.SyncedAt, err = parseTime(syncedAt); err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}
	if item.LastModifiedAt, err = parseTime(lastModifiedAt); err != nil {
		return nil, fmt.Errorf("parse last_modified_at: %w", err)
	}
	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse resolved_at: %w", err)
		}
		item.ResolvedAt = &t
	}

	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// encodeData сериализует полезную нагрузку; колонка NOT NULL,
// поэтому пустая нагрузка пишется как пустой объект.
func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeConflictData сериализует конфликтную нагрузку; nil означает SQL NULL
func encodeConflictData(data map[string]any) (sql.NullString, error) {
	if data == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
