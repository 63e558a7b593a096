package restart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
)

type fakeSurface struct {
	id        string
	saved     *models.RestartSnapshot
	forwarded *models.RestartSnapshot

	mu     sync.Mutex
	state  models.RestartSnapshot
	closed bool
}

func (f *fakeSurface) ID() string { return f.id }

func (f *fakeSurface) Snapshot() models.RestartSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSurface) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSurface) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type harness struct {
	mu       sync.Mutex
	launched []*fakeSurface
	fail     bool

	// gate, si no es nil, detiene cada lanzamiento hasta cerrarse
	gate    chan struct{}
	entered chan struct{}
}

func (h *harness) launch(saved, forwarded *models.RestartSnapshot) (*fakeSurface, error) {
	h.mu.Lock()
	gate, entered := h.gate, h.entered
	h.mu.Unlock()
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return nil, errors.New("launch failed")
	}
	s := &fakeSurface{id: fmt.Sprintf("s%d", len(h.launched)), saved: saved, forwarded: forwarded}
	switch {
	case saved != nil:
		s.state = *saved
	case forwarded != nil:
		s.state = *forwarded
	}
	h.launched = append(h.launched, s)
	return s, nil
}

func (h *harness) surfaces() []*fakeSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*fakeSurface(nil), h.launched...)
}

func (h *harness) alive() int {
	n := 0
	for _, s := range h.surfaces() {
		if !s.isClosed() {
			n++
		}
	}
	return n
}

func newCoordinator(t *testing.T) (*Coordinator[*fakeSurface], *harness) {
	t.Helper()

	h := &harness{}
	c := NewCoordinator[*fakeSurface](settings.NewStore(settings.Default(), nil), h.launch, nil)
	require.NoError(t, c.Start())
	return c, h
}

func TestCurrentBeforeStart(t *testing.T) {
	t.Parallel()

	h := &harness{}
	c := NewCoordinator[*fakeSurface](settings.NewStore(settings.Default(), nil), h.launch, nil)
	_, err := c.Current()
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSurface)
}

func TestEqualValueDoesNotRestart(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	assert.False(t, c.RequestChange(settings.ModeChange(settings.ModeAuto)))
	assert.False(t, c.RequestChange(settings.LanguageChange(settings.LangEN)))

	assert.Never(t, func() bool { return len(h.surfaces()) > 1 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Zero(t, c.Restarts())
}

func TestDifferingValueRestartsWithPreservedState(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)
	first, err := c.Current()
	require.NoError(t, err)
	first.mu.Lock()
	first.state = models.RestartSnapshot{PendingIdentifierText: "PO-42", LastLogLine: "Retrieving payment signature..."}
	first.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.True(t, c.RequestChange(settings.LanguageChange(settings.LangJA)))
	require.Eventually(t, func() bool { return c.Restarts() == 1 }, 2*time.Second, 5*time.Millisecond)

	surfaces := h.surfaces()
	require.Len(t, surfaces, 2)
	assert.True(t, surfaces[0].isClosed())
	assert.Equal(t, 1, h.alive())

	next := surfaces[1]
	assert.Nil(t, next.saved)
	require.NotNil(t, next.forwarded)
	assert.Equal(t, "PO-42", next.forwarded.PendingIdentifierText)
	assert.Equal(t, "Retrieving payment signature...", next.forwarded.LastLogLine)

	cur, err := c.Current()
	require.NoError(t, err)
	assert.Same(t, next, cur)
	assert.Equal(t, settings.LangJA, c.Settings().Language)
}

func TestPendingChangesCoalesceIntoOneRestart(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)

	require.True(t, c.RequestChange(settings.LanguageChange(settings.LangDE)))
	require.True(t, c.RequestChange(settings.ModeChange(settings.ModeNight)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Restarts() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return c.Restarts() > 1 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, h.alive())
}

func TestRecreateUsesSavedCarrier(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)
	first, _ := c.Current()
	first.mu.Lock()
	first.state = models.RestartSnapshot{PendingIdentifierText: "PO-1"}
	first.mu.Unlock()

	next, err := c.Recreate()
	require.NoError(t, err)

	require.NotNil(t, next.saved)
	assert.Nil(t, next.forwarded)
	assert.Equal(t, "PO-1", next.saved.PendingIdentifierText)
	assert.Equal(t, 1, h.alive())
	assert.Zero(t, c.Restarts())
}

func TestFailedRelaunchLeavesNoSurface(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)
	h.mu.Lock()
	h.fail = true
	h.mu.Unlock()

	_, err := c.Recreate()
	require.Error(t, err)

	_, err = c.Current()
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSurface)
	assert.Zero(t, h.alive())
}

func TestChangeDuringRestartIsQueued(t *testing.T) {
	t.Parallel()

	c, h := newCoordinator(t)

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	h.mu.Lock()
	h.gate, h.entered = gate, entered
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	// nunca hay más de una superficie viva
	var overlap atomic.Bool
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		for ctx.Err() == nil {
			if h.alive() > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.True(t, c.RequestChange(settings.LanguageChange(settings.LangJA)))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("restart never started")
	}

	second := make(chan bool, 1)
	go func() { second <- c.RequestChange(settings.LanguageChange(settings.LangDE)) }()

	// el segundo pedido espera a que termine el reinicio en curso
	select {
	case <-second:
		t.Fatal("change applied while a restart was in progress")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, settings.LangJA, c.Settings().Language)

	close(gate)
	select {
	case changed := <-second:
		assert.True(t, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("queued change never applied")
	}

	require.Eventually(t, func() bool { return c.Restarts() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-watchDone

	assert.False(t, overlap.Load())
	assert.Equal(t, 1, h.alive())
	assert.Equal(t, settings.LangDE, c.Settings().Language)
}
