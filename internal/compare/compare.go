package compare

import (
	"fmt"

	"go.uber.org/zap"
)

// Result describe el resultado de la comparación
type Result[T comparable] struct {
	Changed   bool   // true si el valor pedido difiere del activo
	Field     string // ajuste comparado (language, theme, mode)
	Current   T      // valor activo
	Requested T      // valor pedido
}

// Setting evalúa si aplicar requested cambiaría el ajuste activo.
// Un valor igual al activo no debe disparar reinicios.
func Setting[T comparable](field string, current, requested T, logger *zap.Logger) Result[T] {
	if logger == nil {
		logger = zap.NewNop()
	}

	changed := current != requested

	// Log informativo claro
	if changed {
		logger.Info("compare: setting change detected",
			zap.String("field", field),
			zap.String("from", fmt.Sprint(current)),
			zap.String("to", fmt.Sprint(requested)),
		)
	} else {
		logger.Debug("compare: setting unchanged",
			zap.String("field", field),
			zap.String("value", fmt.Sprint(current)),
		)
	}

	return Result[T]{
		Changed:   changed,
		Field:     field,
		Current:   current,
		Requested: requested,
	}
}
