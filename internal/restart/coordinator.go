// Package restart reemplaza la superficie activa cuando cambia un ajuste de
// apariencia y le pasa el estado anterior como RestartSnapshot.
package restart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/metrics"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
)

// Surface es lo que el coordinador necesita de una superficie
type Surface interface {
	ID() string
	Snapshot() models.RestartSnapshot
	Close()
}

// Launcher construye y conecta una superficie. saved es el estado guardado
// explícitamente, forwarded el que viaja en un reinicio; a lo sumo uno no es nil.
type Launcher[S Surface] func(saved, forwarded *models.RestartSnapshot) (S, error)

// Serializer ejecuta fn en el goroutine que publica y espera a que termine;
// *worker.Loop lo implementa.
type Serializer interface {
	Do(fn func())
}

// SettingsStore lo implementa *settings.Store
type SettingsStore interface {
	Current() settings.Settings
	Apply(change settings.Change) bool
	RestartSignals() <-chan struct{}
}

// Coordinator mantiene exactamente una superficie viva.
//
// RequestChange solo aplica el ajuste; el reemplazo lo hace Run al recibir la
// señal del store. Reemplazos y pedidos toman mu, así que un pedido que llega
// a mitad de un reinicio espera a que termine.
//
// El reemplazo corre en el loop de publicación: ningún outcome se entrega
// entre desconectar la superficie vieja y conectar la nueva.
type Coordinator[S Surface] struct {
	mu       sync.Mutex
	store    SettingsStore
	launch   Launcher[S]
	loop     Serializer
	current  S
	active   bool
	restarts int
}

// NewCoordinator: con loop nil el reemplazo corre en el goroutine que llama.
func NewCoordinator[S Surface](store SettingsStore, launch Launcher[S], loop Serializer) *Coordinator[S] {
	return &Coordinator[S]{store: store, launch: launch, loop: loop}
}

// Start lanza la primera superficie
func (c *Coordinator[S]) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil
	}
	s, err := c.launch(nil, nil)
	if err != nil {
		return fmt.Errorf("launch surface: %w", err)
	}
	c.current, c.active = s, true
	zap.L().Info("surface launched", zap.String("surface_id", s.ID()))
	return nil
}

// Current devuelve la superficie viva
func (c *Coordinator[S]) Current() (S, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		var zero S
		return zero, apperrors.ErrNoActiveSurface
	}
	return c.current, nil
}

// RequestChange aplica change. Devuelve false, y no hay reinicio, si el valor
// es igual al activo.
func (c *Coordinator[S]) RequestChange(change settings.Change) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.store.Apply(change)
	if !changed {
		zap.L().Info("appearance unchanged, restart skipped", zap.Stringer("change", change))
	}
	return changed
}

func (c *Coordinator[S]) Settings() settings.Settings {
	return c.store.Current()
}

// Restarts cuenta los reinicios completados
func (c *Coordinator[S]) Restarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restarts
}

// Run hace un reinicio por señal hasta que ctx termina
func (c *Coordinator[S]) Run(ctx context.Context) error {
	signals := c.store.RestartSignals()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-signals:
			if err := c.restart(); err != nil {
				zap.L().Error("surface restart failed", zap.Error(err))
			}
		}
	}
}

func (c *Coordinator[S]) restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return apperrors.ErrNoActiveSurface
	}

	old := c.current
	next, err := c.replace(func(snap *models.RestartSnapshot) (S, error) {
		return c.launch(nil, snap)
	})
	if err != nil {
		return fmt.Errorf("relaunch surface: %w", err)
	}
	c.restarts++
	metrics.RecordRestart()

	zap.L().Info("surface restarted",
		zap.String("from", old.ID()),
		zap.String("to", next.ID()),
		zap.Int("restarts", c.restarts),
	)
	return nil
}

// Recreate destruye la superficie y la reconstruye desde su estado guardado
func (c *Coordinator[S]) Recreate() (S, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero S
	if !c.active {
		return zero, apperrors.ErrNoActiveSurface
	}

	old := c.current
	next, err := c.replace(func(saved *models.RestartSnapshot) (S, error) {
		return c.launch(saved, nil)
	})
	if err != nil {
		return zero, fmt.Errorf("recreate surface: %w", err)
	}

	zap.L().Info("surface recreated", zap.String("from", old.ID()), zap.String("to", next.ID()))
	return next, nil
}

// replace cierra la superficie actual, toma su estado ya desconectada y lanza
// la nueva con él. Se llama con mu tomado.
func (c *Coordinator[S]) replace(relaunch func(snap *models.RestartSnapshot) (S, error)) (S, error) {
	var (
		next S
		err  error
	)
	c.serialize(func() {
		old := c.current
		old.Close()
		snap := old.Snapshot()
		c.active = false

		next, err = relaunch(&snap)
	})
	if err != nil {
		var zero S
		return zero, err
	}
	c.current, c.active = next, true
	return next, nil
}

func (c *Coordinator[S]) serialize(fn func()) {
	if c.loop == nil {
		fn()
		return
	}
	c.loop.Do(fn)
}
