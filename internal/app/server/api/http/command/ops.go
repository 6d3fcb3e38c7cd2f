package command

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "command-sync",
		Method:      http.MethodPost,
		Path:        "/api/sync/commands",
		Summary:     "Синхронизировать историю команд",
		Description: "Принимает батч команд с устройства, дубликаты отбрасываются",
		Tags:        []string{"commands"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "command-get-changes",
		Method:      http.MethodGet,
		Path:        "/api/sync/commands/changes",
		Summary:     "Получить новые команды",
		Description: "Возвращает команды, добавленные другими устройствами после указанного времени",
		Tags:        []string{"commands"},
		Middlewares: h.middleware,
	}
}
