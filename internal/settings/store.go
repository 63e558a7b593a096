package settings

import (
	"sync"

	"go.uber.org/zap"
)

// Store guarda la apariencia activa y levanta las señales de reinicio.
//
// Mientras haya un reinicio pendiente los cambios nuevos no encolan otro: el
// pendiente ya los toma.
type Store struct {
	mu      sync.Mutex
	current Settings
	signals chan struct{}
	logger  *zap.Logger
}

func NewStore(initial Settings, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		current: initial,
		signals: make(chan struct{}, 1),
		logger:  logger,
	}
}

// Current devuelve la apariencia activa
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Apply activa c. Devuelve false, sin señal, si c es igual al valor activo.
func (s *Store) Apply(c Change) bool {
	s.mu.Lock()
	if !c.Differs(s.current, s.logger) {
		s.mu.Unlock()
		return false
	}
	s.current = c.applyTo(s.current)
	s.mu.Unlock()

	s.logger.Info("appearance applied", zap.Stringer("change", c))

	select {
	case s.signals <- struct{}{}:
	default:
		// ya hay un reinicio pendiente
	}
	return true
}

// RestartSignals entrega un valor por reinicio pendiente
func (s *Store) RestartSignals() <-chan struct{} {
	return s.signals
}
