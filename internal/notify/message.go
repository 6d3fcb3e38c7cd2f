package notify

import (
	"time"

	"termsync/internal/domain/resolver"
)

// MessageType — тип события в канале уведомлений.
type MessageType string

const (
	TypeSyncUpdate    MessageType = "sync_update"
	TypeSyncConflict  MessageType = "sync_conflict"
	TypeDeviceStatus  MessageType = "device_status"
	TypeDeviceMessage MessageType = "device_message"
)

// Message — конверт события. Общие поля заполняются всегда,
// типоспецифичные — только для своего типа.
type Message struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`

	// sync_update
	SyncType       string `json:"sync_type,omitempty"`
	Count          int    `json:"count,omitempty"`
	SourceDeviceID string `json:"source_device_id,omitempty"`

	// sync_conflict
	SyncKey  string           `json:"sync_key,omitempty"`
	Conflict *resolver.Report `json:"conflict,omitempty"`

	// device_status / device_message
	DeviceID string         `json:"device_id,omitempty"`
	Status   string         `json:"status,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
