package syncitem

import "time"

// DeviceType — класс устройства-источника изменений.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceWeb     DeviceType = "web"
)

// NormalizeDeviceType приводит произвольное значение к известному типу;
// незнакомые значения считаются desktop.
func NormalizeDeviceType(raw string) DeviceType {
	switch DeviceType(raw) {
	case DeviceMobile, DeviceDesktop, DeviceWeb:
		return DeviceType(raw)
	default:
		return DeviceDesktop
	}
}

// SyncItem — атомарная единица синхронизации. Идентичность задаётся
// тройкой (user_id, sync_type, sync_key), версия растёт монотонно с 1.
type SyncItem struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	SyncType         string         `json:"sync_type"`
	SyncKey          string         `json:"sync_key"`
	Data             map[string]any `json:"data"`
	Version          int            `json:"version"`
	IsDeleted        bool           `json:"is_deleted"`
	SourceDeviceID   string         `json:"source_device_id"`
	SourceDeviceType DeviceType     `json:"source_device_type"`
	ConflictData     map[string]any `json:"conflict_data,omitempty"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
	SyncedAt         time.Time      `json:"synced_at"`
	LastModifiedAt   time.Time      `json:"last_modified_at"`
}

// HasOpenConflict: конфликт открыт, пока записана конкурирующая версия,
// а момент разрешения не проставлен.
func (i *SyncItem) HasOpenConflict() bool {
	return i.ConflictData != nil && i.ResolvedAt == nil
}

// Stats — сводка по элементам пользователя.
type Stats struct {
	TotalItems    int64            `json:"total_items"`
	ByType        map[string]int64 `json:"by_type"`
	OpenConflicts int64            `json:"open_conflicts"`
	Deleted       int64            `json:"deleted"`
	ByDeviceType  map[string]int64 `json:"by_device_type"`
}
