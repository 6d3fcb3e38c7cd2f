package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-upload",
		Method:      http.MethodPost,
		Path:        "/api/sync/upload",
		Summary:     "Загрузить пакет элементов",
		Description: "Принимает пакет элементов с устройства и применяет их с разрешением конфликтов",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-changes",
		Method:      http.MethodPost,
		Path:        "/api/sync/changes",
		Summary:     "Получить изменения для синхронизации",
		Description: "Возвращает элементы, измененные другими устройствами после указанного времени",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-stats",
		Method:      http.MethodGet,
		Path:        "/api/sync/stats",
		Summary:     "Получить статистику синхронизации",
		Description: "Возвращает количество элементов пользователя по типам и устройствам",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) conflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts",
		Summary:     "Получить конфликты синхронизации",
		Description: "Возвращает список элементов с неразрешенными конфликтами",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт синхронизации",
		Description: "Принимает выбранную версию данных и закрывает конфликт",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
