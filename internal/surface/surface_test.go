package surface

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/cashier"
	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/worker"
)

type fakeSubmitter struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeSubmitter) Submit(_ context.Context, orderID string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, orderID)
	return uint64(len(f.ids)), nil
}

type fakeCashier struct {
	mu     sync.Mutex
	opened []models.SignatureData
	result cashier.Result
}

func (f *fakeCashier) Open(_ context.Context, data models.SignatureData) cashier.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, data)
	return f.result
}

func (f *fakeCashier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func newDeps(t *testing.T, result cashier.Result) (Deps, *fakeSubmitter, *fakeCashier) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := worker.NewLoop(0)
	go func() { _ = loop.Run(ctx) }()
	pool := worker.NewWorkerPool(1, 0)
	pool.Start(ctx)

	sub := &fakeSubmitter{}
	cash := &fakeCashier{result: result}
	return Deps{
		Pipeline: sub,
		Channel:  presentation.NewChannel(),
		Cashier:  cash,
		Pool:     pool,
		Loop:     loop,
	}, sub, cash
}

func usable() models.SignatureData {
	return models.SignatureData{OrderID: "PO-1", Timestamp: 1700000000000, Nonce: "n", Signature: "s"}
}

func update(gen uint64, o outcome.Outcome[models.SignatureData]) presentation.Update {
	return presentation.Update{Generation: gen, OrderID: "PO-1", Outcome: o}
}

func TestNewRestorePrecedence(t *testing.T) {
	t.Parallel()

	saved := &models.RestartSnapshot{PendingIdentifierText: "saved", LastLogLine: "saved log"}
	forwarded := &models.RestartSnapshot{PendingIdentifierText: "forwarded", LastLogLine: "fwd log"}

	tests := []struct {
		name      string
		orderID   string
		saved     *models.RestartSnapshot
		forwarded *models.RestartSnapshot
		wantText  string
		wantLog   string
	}{
		{name: "saved_wins", saved: saved, forwarded: forwarded, wantText: "saved", wantLog: "saved log"},
		{name: "forwarded", forwarded: forwarded, wantText: "forwarded", wantLog: "fwd log"},
		{name: "empty", wantText: "", wantLog: ""},
		{name: "launch_order_id", orderID: "PO-9", wantText: "PO-9"},
		{name: "restored_text_beats_launch_id", orderID: "PO-9", forwarded: forwarded, wantText: "forwarded", wantLog: "fwd log"},
		{
			name:      "empty_restored_text_stays_empty",
			orderID:   "PO-9",
			forwarded: &models.RestartSnapshot{LastLogLine: "x"},
			wantText:  "",
			wantLog:   "x",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := New(Deps{OrderID: tt.orderID, Channel: presentation.NewChannel()}, tt.saved, tt.forwarded)
			st := s.State()
			assert.Equal(t, tt.wantText, st.PendingText)
			assert.Equal(t, tt.wantLog, st.LogLine)
			assert.NotEmpty(t, st.ID)
		})
	}
}

func TestClearedInputSurvivesRestart(t *testing.T) {
	t.Parallel()

	deps, _, _ := newDeps(t, cashier.Result{Opened: true})
	deps.OrderID = "LAUNCH-1"

	first := New(deps, nil, nil)
	first.Attach()
	require.Equal(t, "LAUNCH-1", first.State().PendingText)

	require.NoError(t, first.SetPendingText(""))
	first.Close()
	snap := first.Snapshot()

	next := New(deps, nil, &snap)
	next.Attach()
	defer next.Close()

	st := next.State()
	assert.Equal(t, "", st.PendingText)
	assert.Equal(t, "LAUNCH-1", st.OriginalOrderID)
}

func TestOutcomeRendering(t *testing.T) {
	t.Parallel()

	deps, _, _ := newDeps(t, cashier.Result{Opened: true})
	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	ch := deps.Channel

	ch.Outcomes.Publish(update(1, outcome.Loading[models.SignatureData]()))
	st := s.State()
	assert.True(t, st.Busy)
	assert.Equal(t, LineLoading, st.LogLine)

	ch.Outcomes.Publish(update(1, outcome.Error[models.SignatureData](4001, "order expired")))
	st = s.State()
	assert.False(t, st.Busy)
	assert.Equal(t, "Signature retrieval failed: order expired", st.LogLine)

	cause := apperrors.ErrTransport("POST", errors.New("connection refused"))
	ch.Outcomes.Publish(update(2, outcome.Failure[models.SignatureData](cause)))
	assert.Equal(t, "Network error: connection refused", s.State().LogLine)
}

func TestSuccessHandsOffToCashier(t *testing.T) {
	t.Parallel()

	deps, _, cash := newDeps(t, cashier.Result{Opened: true})
	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	deps.Channel.Outcomes.Publish(update(1, outcome.Success(usable())))

	require.Eventually(t, func() bool { return s.State().LogLine == LineCashierOpened }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, cash.count())
}

func TestCashierFailureIsRelayed(t *testing.T) {
	t.Parallel()

	deps, _, _ := newDeps(t, cashier.Result{Code: 1002, Message: "order closed"})
	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	deps.Channel.Outcomes.Publish(update(1, outcome.Success(usable())))

	want := "Payment page failed to open (code: 1002, message: order closed)"
	require.Eventually(t, func() bool { return s.State().LogLine == want }, 2*time.Second, 5*time.Millisecond)
}

func TestUnusableSuccessIsNotHandedOff(t *testing.T) {
	t.Parallel()

	deps, _, cash := newDeps(t, cashier.Result{Opened: true})
	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	data := usable()
	data.Nonce = ""
	deps.Channel.Outcomes.Publish(update(1, outcome.Success(data)))

	require.NoError(t, deps.Loop.(*worker.Loop).Sync(context.Background()))
	assert.Equal(t, LineUnusable, s.State().LogLine)
	assert.Zero(t, cash.count())
}

func TestRestoredSurfaceIgnoresReplay(t *testing.T) {
	t.Parallel()

	deps, _, cash := newDeps(t, cashier.Result{Opened: true})
	deps.Channel.Outcomes.Publish(update(1, outcome.Success(usable())))
	deps.Channel.Logs.Publish(LineCashierOpened)

	s := New(deps, nil, &models.RestartSnapshot{PendingIdentifierText: "PO-1", LastLogLine: "restored line"})
	s.Attach()
	defer s.Close()

	st := s.State()
	assert.Equal(t, "restored line", st.LogLine)
	assert.Equal(t, "PO-1", st.PendingText)
	assert.Zero(t, cash.count())

	// lo nuevo sí llega
	deps.Channel.Logs.Publish("fresh")
	assert.Equal(t, "fresh", s.State().LogLine)
}

func TestFreshSurfaceAdoptsReplayWithoutReopening(t *testing.T) {
	t.Parallel()

	deps, _, cash := newDeps(t, cashier.Result{Opened: true})
	deps.Channel.Outcomes.Publish(update(1, outcome.Success(usable())))
	deps.Channel.InputErrors.Publish("Please enter order ID")

	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	st := s.State()
	assert.Equal(t, LineSuccess, st.LogLine)
	assert.Empty(t, st.LastInputError)
	assert.Zero(t, cash.count())
}

func TestSubmitUsesPendingText(t *testing.T) {
	t.Parallel()

	deps, sub, _ := newDeps(t, cashier.Result{Opened: true})
	s := New(deps, nil, nil)
	s.Attach()

	require.NoError(t, s.SetPendingText("PO-5"))
	_, err := s.Submit(context.Background(), "")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "PO-6")
	require.NoError(t, err)

	assert.Equal(t, []string{"PO-5", "PO-6"}, sub.ids)
	assert.Equal(t, "PO-6", s.Snapshot().PendingIdentifierText)

	s.Close()
	_, err = s.Submit(context.Background(), "PO-7")
	assert.ErrorIs(t, err, apperrors.ErrSurfaceClosed)
	assert.ErrorIs(t, s.SetPendingText("x"), apperrors.ErrSurfaceClosed)

	deps.Channel.Logs.Publish("after close")
	assert.NotEqual(t, "after close", s.State().LogLine)
	assert.Zero(t, deps.Channel.Logs.Subscribers())
}

func TestInputErrorIsShown(t *testing.T) {
	t.Parallel()

	deps, _, _ := newDeps(t, cashier.Result{Opened: true})
	s := New(deps, nil, nil)
	s.Attach()
	defer s.Close()

	deps.Channel.InputErrors.Publish("Please enter order ID")
	assert.Equal(t, "Please enter order ID", s.State().LastInputError)
}
