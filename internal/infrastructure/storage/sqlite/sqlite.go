package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage — встраиваемое хранилище для одиночного сервера без PostgreSQL
type Storage struct {
	db *sql.DB
}

func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	storage := &Storage{db: db}

	// Создаем таблицы
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return storage, nil
}

func (s *Storage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_items (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			sync_type TEXT NOT NULL,
			sync_key TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL DEFAULT 1,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			source_device_id TEXT NOT NULL DEFAULT '',
			source_device_type TEXT NOT NULL DEFAULT 'desktop',
			conflict_data TEXT,
			resolved_at TEXT,
			synced_at TEXT NOT NULL,
			last_modified_at TEXT NOT NULL,
			UNIQUE (user_id, sync_type, sync_key)
		);

		CREATE INDEX IF NOT EXISTS idx_sync_items_user_modified ON sync_items(user_id, last_modified_at);
		CREATE INDEX IF NOT EXISTS idx_sync_items_user_type ON sync_items(user_id, sync_type);
	`)

	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) DB() *sql.DB {
	return s.db
}
