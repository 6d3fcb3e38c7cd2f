package device

// Request/Response структуры для Register
type registerInput struct {
	Body RegisterRequest
}

type registerOutput struct {
	Body RegisterResponse
}

type RegisterRequest struct {
	DeviceID   string `json:"device_id,omitempty" example:"dev_a1b2c3d4e5f6" doc:"Идентификатор устройства, при отсутствии генерируется сервером"`
	DeviceType string `json:"device_type,omitempty" example:"mobile" doc:"Тип устройства: desktop, mobile или web"`
}

type RegisterResponse struct {
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	DeviceID      string `json:"device_id"`
	DeviceType    string `json:"device_type"`
	RequestedType string `json:"requested_type,omitempty"`
}

// Request/Response структуры для Active
type activeInput struct {
}

type activeOutput struct {
	Body ActiveResponse
}

type ActiveResponse struct {
	Status  string   `json:"status"`
	Error   string   `json:"error,omitempty"`
	Devices []string `json:"devices"`
	Count   int      `json:"count"`
}
