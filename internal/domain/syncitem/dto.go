package syncitem

import "termsync/internal/domain/resolver"

// IncomingItem — один элемент из батча загрузки.
type IncomingItem struct {
	SyncType string         `json:"sync_type"`
	SyncKey  string         `json:"sync_key"`
	Data     map[string]any `json:"data"`
	Deleted  bool           `json:"deleted,omitempty"`
	// ConflictFields сужает проверку конфликтующей записи до
	// перечисленных полей; пустой список сравнивает весь payload.
	ConflictFields []string `json:"-"`
}

// ChangesQuery — фильтры выборки изменений.
type ChangesQuery struct {
	SyncType        string
	ExcludeDeviceID string
	Limit           int
}

// ConflictInfo описывает конфликт, возникший при обработке батча.
type ConflictInfo struct {
	ItemID   string          `json:"item_id"`
	SyncType string          `json:"sync_type"`
	SyncKey  string          `json:"sync_key"`
	Report   resolver.Report `json:"report"`
}

// ItemError — ошибка обработки одного элемента батча.
type ItemError struct {
	Index   int    `json:"index"`
	SyncKey string `json:"sync_key,omitempty"`
	Error   string `json:"error"`
}

// BatchResult — итог поэлементной обработки батча. Элементы независимы:
// ошибка или конфликт одного не откатывает остальные.
type BatchResult struct {
	Synced     int            `json:"synced"`
	Conflicted int            `json:"conflicted"`
	Failed     int            `json:"failed"`
	Conflicts  []ConflictInfo `json:"conflicts,omitempty"`
	Errors     []ItemError    `json:"errors,omitempty"`
}
