package settings

import (
	"termsync/internal/domain/settings"
)

// Request/Response структуры для Sync
type syncInput struct {
	Body SyncRequest
}

type syncOutput struct {
	Body SyncResponse
}

type SyncRequest struct {
	Settings map[string]any `json:"settings" doc:"Снимок настроек устройства, неизвестные ключи отбрасываются"`
}

type SyncResponse struct {
	Status string               `json:"status"`
	Error  string               `json:"error,omitempty"`
	Result *settings.SyncResult `json:"result,omitempty"`
}

// Request/Response структуры для Current
type currentInput struct {
}

type currentOutput struct {
	Body CurrentResponse
}

type CurrentResponse struct {
	Status   string         `json:"status"`
	Error    string         `json:"error,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Request/Response структуры для Diff
type diffInput struct {
	Body DiffRequest
}

type diffOutput struct {
	Body DiffResponse
}

type DiffRequest struct {
	Settings map[string]any `json:"settings" doc:"Снимок настроек устройства для сравнения с сервером"`
}

type DiffResponse struct {
	Status string                        `json:"status"`
	Error  string                        `json:"error,omitempty"`
	Diff   map[string]settings.DiffEntry `json:"diff"`
}

// Request/Response структуры для Export
type exportInput struct {
}

type exportOutput struct {
	Body ExportResponse
}

type ExportResponse struct {
	Status string           `json:"status"`
	Error  string           `json:"error,omitempty"`
	Export *settings.Export `json:"export,omitempty"`
}

// Request/Response структуры для Import
type importInput struct {
	Body ImportRequest
}

type importOutput struct {
	Body ImportResponse
}

type ImportRequest struct {
	Data      map[string]any `json:"data" doc:"Ранее экспортированные настройки, конверт экспорта или плоский словарь"`
	Overwrite bool           `json:"overwrite,omitempty" doc:"Сбросить отсутствующие в импорте ключи к значениям по умолчанию"`
}

type ImportResponse struct {
	Status string               `json:"status"`
	Error  string               `json:"error,omitempty"`
	Result *settings.SyncResult `json:"result,omitempty"`
}
