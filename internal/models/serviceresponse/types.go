// internal/models/serviceresponse/types.go
package serviceresponse

// StateResponse es lo que muestra la superficie interactiva en este momento.
type StateResponse struct {
	SurfaceID       string        `json:"surface_id"`
	PendingText     string        `json:"pending_text"`
	LogLine         string        `json:"log_line"`
	Busy            bool          `json:"busy"`
	LastInputError  string        `json:"last_input_error,omitempty"`
	OriginalOrderID string        `json:"original_order_id,omitempty"`
	Restarts        int           `json:"restarts"`
	Appearance      AppearanceDTO `json:"appearance"`
}

// AppearanceDTO describe los ajustes activos de idioma, tema y modo.
type AppearanceDTO struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
	Mode     string `json:"mode"`
}

// SubmitResponse confirma que la solicitud de firma entró en estado Requesting.
type SubmitResponse struct {
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	Generation uint64 `json:"generation"`
}

// SettingsResponse indica si el cambio disparó un reinicio de la superficie.
type SettingsResponse struct {
	Changed    bool          `json:"changed"`
	Appearance AppearanceDTO `json:"appearance"`
}

// ErrorResponse es el cuerpo de cualquier error del API.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// EventMessage es cada mensaje enviado por el websocket /events.
type EventMessage struct {
	Channel    string `json:"channel"` // "outcome" | "log" | "input_error"
	Kind       string `json:"kind,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	Code       int    `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"` // "business" | "transport" | ...
	Retryable  bool   `json:"retryable,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Nonce      string `json:"nonce,omitempty"`
	Signature  string `json:"signature,omitempty"`
}
