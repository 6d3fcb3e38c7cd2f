package device

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) registerOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-register",
		Method:      http.MethodPost,
		Path:        "/api/devices/register",
		Summary:     "Зарегистрировать устройство",
		Description: "Отмечает устройство активным и уведомляет остальные устройства пользователя",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) activeOp() huma.Operation {
	return huma.Operation{
		OperationID: "device-get-active",
		Method:      http.MethodGet,
		Path:        "/api/devices/active",
		Summary:     "Получить активные устройства",
		Description: "Возвращает устройства пользователя, проявлявшие активность в пределах TTL",
		Tags:        []string{"devices"},
		Middlewares: h.middleware,
	}
}
