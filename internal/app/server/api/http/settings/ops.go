package settings

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-sync",
		Method:      http.MethodPost,
		Path:        "/api/sync/settings",
		Summary:     "Синхронизировать настройки",
		Description: "Принимает снимок настроек устройства, ключи вне белого списка отбрасываются",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) currentOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-get-current",
		Method:      http.MethodGet,
		Path:        "/api/sync/settings",
		Summary:     "Получить действующие настройки",
		Description: "Возвращает настройки пользователя поверх значений по умолчанию",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) diffOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-diff",
		Method:      http.MethodPost,
		Path:        "/api/sync/settings/diff",
		Summary:     "Сравнить настройки с сервером",
		Description: "Возвращает ключи, значения которых расходятся между клиентом и сервером",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) exportOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-export",
		Method:      http.MethodGet,
		Path:        "/api/sync/settings/export",
		Summary:     "Экспортировать настройки",
		Description: "Выгружает настройки пользователя в переносимом формате",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) importOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-import",
		Method:      http.MethodPost,
		Path:        "/api/sync/settings/import",
		Summary:     "Импортировать настройки",
		Description: "Загружает ранее экспортированные настройки, при overwrite сбрасывает остальные ключи",
		Tags:        []string{"settings"},
		Middlewares: h.middleware,
	}
}
