package sshprofile

import (
	"time"

	"termsync/internal/domain/sshprofile"
	"termsync/internal/domain/syncitem"
)

// Request/Response структуры для Sync
type syncInput struct {
	Body SyncRequest
}

type syncOutput struct {
	Body SyncResponse
}

type SyncRequest struct {
	Profiles []map[string]any `json:"profiles" maxItems:"500" doc:"SSH-профили или метаданные ключей"`
	KeysOnly bool             `json:"keys_only,omitempty" doc:"Пакет содержит метаданные ключей, а не профили"`
}

type SyncResponse struct {
	Status string                 `json:"status"`
	Error  string                 `json:"error,omitempty"`
	Result *sshprofile.SyncResult `json:"result,omitempty"`
}

// Request/Response структуры для Changes
type changesInput struct {
	Since    time.Time `query:"since" format:"date-time" example:"2024-01-01T12:00:00Z" doc:"Вернуть изменения после этого момента"`
	KeysOnly bool      `query:"keys_only" doc:"Вернуть метаданные ключей вместо профилей"`
}

type changesOutput struct {
	Body ChangesResponse
}

type ChangesResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Items  []syncitem.SyncItem `json:"items"`
}
