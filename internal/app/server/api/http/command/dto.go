package command

import (
	"time"

	"termsync/internal/domain/command"
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
	Commands []map[string]any `json:"commands" maxItems:"1000" doc:"Команды из локальной истории устройства"`
}

type SyncResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Result *command.SyncResult `json:"result,omitempty"`
}

// Request/Response структуры для Changes
type changesInput struct {
	Since time.Time `query:"since" format:"date-time" example:"2024-01-01T12:00:00Z" doc:"Вернуть команды, измененные после этого момента"`
}

type changesOutput struct {
	Body ChangesResponse
}

type ChangesResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Items  []syncitem.SyncItem `json:"items"`
}
