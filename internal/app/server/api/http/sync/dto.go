package sync

import (
	"time"

	"termsync/internal/domain/syncitem"
)

// Request/Response структуры для Upload
type uploadInput struct {
	Body UploadRequest
}

type uploadOutput struct {
	Body UploadResponse
}

type UploadRequest struct {
	Items []UploadItem `json:"items" maxItems:"1000" doc:"Элементы для загрузки на сервер"`
}

type UploadItem struct {
	SyncType string         `json:"sync_type" enum:"command,ssh_profile,ssh_key,user_setting" example:"command" doc:"Тип синхронизируемого элемента"`
	SyncKey  string         `json:"sync_key" minLength:"1" example:"command_user-1_2024-01-15T10:00:00Z" doc:"Ключ элемента, уникальный внутри типа"`
	Data     map[string]any `json:"data" doc:"Полезная нагрузка элемента"`
	Deleted  bool           `json:"deleted,omitempty" doc:"Пометить элемент удаленным"`
}

type UploadResponse struct {
	Status   string                `json:"status"`
	Error    string                `json:"error,omitempty"`
	Accepted int                   `json:"accepted"`
	Result   *syncitem.BatchResult `json:"result,omitempty"`
}

// Request/Response структуры для Changes
type changesInput struct {
	Body ChangesRequest
}

type changesOutput struct {
	Body ChangesResponse
}

type ChangesRequest struct {
	Since     time.Time `json:"since" format:"date-time" example:"2024-01-01T12:00:00Z" doc:"Вернуть изменения после этого момента"`
	SyncTypes []string  `json:"sync_types,omitempty" doc:"Интересующие типы, пустой список означает все"`
	Limit     int       `json:"limit,omitempty" minimum:"1" maximum:"1000" doc:"Ограничение на количество элементов каждого типа"`
}

type ChangesResponse struct {
	Status            string              `json:"status"`
	Error             string              `json:"error,omitempty"`
	Items             []syncitem.SyncItem `json:"items"`
	Conflicts         []syncitem.SyncItem `json:"conflicts,omitempty"`
	ActiveDeviceCount int                 `json:"active_device_count"`
	ServerTime        time.Time           `json:"server_time"`
}

// Request/Response структуры для Stats
type statsInput struct {
}

type statsOutput struct {
	Body StatsResponse
}

type StatsResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   *syncitem.Stats `json:"data,omitempty"`
}

// Request/Response структуры для Conflicts
type conflictsInput struct {
}

type conflictsOutput struct {
	Body ConflictsResponse
}

type ConflictsResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Data   []syncitem.SyncItem `json:"data,omitempty"`
}

// Request/Response структуры для ResolveConflict
type resolveConflictInput struct {
	ID   string `path:"id" example:"item_a1b2c3d4e5f60718" doc:"Идентификатор элемента"`
	Body ResolveConflictRequest
}

type resolveConflictOutput struct {
	Body ResolveConflictResponse
}

type ResolveConflictRequest struct {
	Chosen string         `json:"chosen" enum:"local,remote,data" example:"remote" doc:"Какую версию принять"`
	Data   map[string]any `json:"data,omitempty" doc:"Итоговые данные, обязательны при chosen=data"`
}

type ResolveConflictResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Item   *syncitem.SyncItem `json:"item,omitempty"`
}
