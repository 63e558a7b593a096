// Package outcome define el resultado de una solicitud de firma asíncrona.
// Un Outcome es exactamente uno de Loading, Success, Error o Failure y no cambia
// después de construido.
package outcome

import "fmt"

// Kind identifica la variante de un Outcome
type Kind int

const (
	KindLoading Kind = iota
	KindSuccess
	KindError
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome es una unión etiquetada. El valor cero es Loading.
type Outcome[T any] struct {
	kind    Kind
	value   T
	code    int
	message string
	cause   error
}

// Loading: la solicitud está en curso
func Loading[T any]() Outcome[T] {
	return Outcome[T]{kind: KindLoading}
}

// Success lleva el valor obtenido
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{kind: KindSuccess, value: value}
}

// Error es un rechazo de negocio informado por el backend
func Error[T any](code int, message string) Outcome[T] {
	return Outcome[T]{kind: KindError, code: code, message: message}
}

// Failure es un fallo de red o de parseo
func Failure[T any](cause error) Outcome[T] {
	if cause == nil {
		cause = fmt.Errorf("unknown failure")
	}
	return Outcome[T]{kind: KindFailure, cause: cause}
}

func (o Outcome[T]) Kind() Kind { return o.kind }

// IsTerminal indica si o ya no es Loading
func (o Outcome[T]) IsTerminal() bool { return o.kind != KindLoading }

// Value devuelve el payload de un Success; ok es false en cualquier otro caso
func (o Outcome[T]) Value() (value T, ok bool) {
	if o.kind != KindSuccess {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Code devuelve el código de negocio de un Error, 0 en otro caso
func (o Outcome[T]) Code() int {
	if o.kind != KindError {
		return 0
	}
	return o.code
}

// Message devuelve el mensaje para el operador de un Error, o la descripción
// de la causa de un Failure.
func (o Outcome[T]) Message() string {
	switch o.kind {
	case KindError:
		return o.message
	case KindFailure:
		return o.cause.Error()
	default:
		return ""
	}
}

// Cause devuelve el error original de un Failure
func (o Outcome[T]) Cause() error {
	if o.kind != KindFailure {
		return nil
	}
	return o.cause
}

// Match llama exactamente a un handler; los nil se ignoran.
func (o Outcome[T]) Match(
	onLoading func(),
	onSuccess func(T),
	onError func(code int, message string),
	onFailure func(error),
) {
	switch o.kind {
	case KindLoading:
		if onLoading != nil {
			onLoading()
		}
	case KindSuccess:
		if onSuccess != nil {
			onSuccess(o.value)
		}
	case KindError:
		if onError != nil {
			onError(o.code, o.message)
		}
	case KindFailure:
		if onFailure != nil {
			onFailure(o.cause)
		}
	}
}

func (o Outcome[T]) String() string {
	switch o.kind {
	case KindSuccess:
		return fmt.Sprintf("success(%v)", o.value)
	case KindError:
		return fmt.Sprintf("error(%d, %q)", o.code, o.message)
	case KindFailure:
		return fmt.Sprintf("failure(%v)", o.cause)
	default:
		return o.kind.String()
	}
}
