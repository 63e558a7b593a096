package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError representa un error de aplicación con código HTTP y contexto
type AppError struct {
	Code       int                    `json:"code"`
	Kind       string                 `json:"kind"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Internal   error                  `json:"-"` // No se expone al cliente
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"-"` // HTTP status code
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap permite usar errors.Is / errors.As sobre el error interno
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewAppError crea un nuevo error de aplicación
func NewAppError(statusCode int, code int, kind string, message string, internal error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		Internal:   internal,
		StatusCode: statusCode,
		Metadata:   make(map[string]interface{}),
		Retryable:  false,
	}
}

// WithDetails agrega detalles adicionales al error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithMetadata agrega metadata al error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithRetryable marca el error como reintentable
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// Kinds
const (
	KindValidation  = "validation"
	KindBusiness    = "business"
	KindTransport   = "transport"
	KindCircuitOpen = "circuit_open"
	KindMalformed   = "malformed_reply"
	KindInternal    = "internal"
)

// Sentinelas para comparar con errors.Is
var (
	ErrBlankOrderID    = stderrors.New("order id is required")
	ErrSurfaceClosed   = stderrors.New("surface is closed")
	ErrNoActiveSurface = stderrors.New("no active surface")
)

// Errores predefinidos del servicio de firmas
var (
	// Entrada inválida (nunca llega a la red)
	ErrValidation = func(details string, err error) *AppError {
		return NewAppError(http.StatusBadRequest, 40000, KindValidation, "Validation error", err).
			WithDetails(details)
	}

	// El backend respondió pero con un código de negocio distinto de éxito
	ErrBusiness = func(bizCode int, details string) *AppError {
		return NewAppError(http.StatusBadGateway, 42200, KindBusiness, "Signature rejected", nil).
			WithDetails(details).
			WithMetadata("biz_code", bizCode)
	}

	// Fallos de red: DNS, TLS, timeout, conexión reseteada
	ErrTransport = func(details string, err error) *AppError {
		return NewAppError(http.StatusBadGateway, 50200, KindTransport, "Network error", err).
			WithDetails(details).
			WithRetryable(true)
	}

	// Circuit breaker abierto: se falla rápido sin tocar la red
	ErrCircuitOpen = func(details string, err error) *AppError {
		return NewAppError(http.StatusServiceUnavailable, 50300, KindCircuitOpen, "Service temporarily unavailable", err).
			WithDetails(details).
			WithRetryable(true)
	}

	ErrExternalAPI = func(statusCode int, details string, err error) *AppError {
		return NewAppError(http.StatusBadGateway, 50201, KindTransport, "External API error", err).
			WithDetails(details).
			WithMetadata("external_status_code", statusCode).
			WithRetryable(statusCode >= 500)
	}

	ErrMalformedReply = func(details string, err error) *AppError {
		return NewAppError(http.StatusBadGateway, 50202, KindMalformed, "Malformed reply", err).
			WithDetails(details)
	}
)

// IsRetryable verifica si un error es reintentable
func IsRetryable(err error) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode obtiene el código HTTP de un error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case stderrors.Is(err, ErrBlankOrderID):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrNoActiveSurface), stderrors.Is(err, ErrSurfaceClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// GetKind clasifica el error para la respuesta JSON
func GetKind(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	if stderrors.Is(err, ErrBlankOrderID) {
		return KindValidation
	}
	return KindInternal
}
