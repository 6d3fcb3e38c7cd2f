package sshprofile

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "ssh-profile-sync",
		Method:      http.MethodPost,
		Path:        "/api/sync/ssh-profiles",
		Summary:     "Синхронизировать SSH-профили",
		Description: "Принимает пакет профилей, приватный материал ключей вырезается на входе",
		Tags:        []string{"ssh"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "ssh-profile-get-changes",
		Method:      http.MethodGet,
		Path:        "/api/sync/ssh-profiles/changes",
		Summary:     "Получить измененные SSH-профили",
		Description: "Возвращает профили, измененные другими устройствами после указанного времени",
		Tags:        []string{"ssh"},
		Middlewares: h.middleware,
	}
}
