package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/worker"
)

func strPtr(s string) *string { return &s }

func successReply(orderID string) *models.RawReply {
	return &models.RawReply{
		Code: 0,
		Business: &models.Business{
			BizCode: strPtr("0"),
			BizData: &models.BizData{
				OrderID:   strPtr(orderID),
				Timestamp: 1700000000000,
				Nonce:     strPtr("nonce-" + orderID),
				Signature: strPtr("sig-" + orderID),
			},
		},
	}
}

type fakeRequester struct {
	calls int32
	fn    func(orderID string) (*models.RawReply, error)
}

func (f *fakeRequester) RequestSignature(_ context.Context, orderID string) (*models.RawReply, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(orderID)
}

// countingLoop cuenta los Post para saber cuándo llegó un resultado tardío
type countingLoop struct {
	*worker.Loop
	posts int32
}

func (c *countingLoop) Post(fn func()) bool {
	atomic.AddInt32(&c.posts, 1)
	return c.Loop.Post(fn)
}

type recorder struct {
	mu      sync.Mutex
	updates []presentation.Update
}

func (r *recorder) add(u presentation.Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []presentation.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]presentation.Update(nil), r.updates...)
}

func newTestPipeline(t *testing.T, req SignatureRequester) (*SignaturePipeline, *countingLoop, *presentation.Channel, *recorder) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := &countingLoop{Loop: worker.NewLoop(0)}
	go func() { _ = loop.Run(ctx) }()

	pool := worker.NewWorkerPool(2, 0)
	pool.Start(ctx)

	ch := presentation.NewChannel()
	rec := &recorder{}
	ch.Outcomes.Subscribe(rec.add)

	return NewSignaturePipeline(req, pool, loop, ch), loop, ch, rec
}

func kinds(updates []presentation.Update) []outcome.Kind {
	out := make([]outcome.Kind, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.Outcome.Kind())
	}
	return out
}

func TestSubmitPublishesLoadingBeforeSuccess(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{fn: func(id string) (*models.RawReply, error) { return successReply(id), nil }}
	p, _, _, rec := newTestPipeline(t, req)

	gen, err := p.Submit(context.Background(), "  PO-1  ")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, []outcome.Kind{outcome.KindLoading, outcome.KindSuccess}, kinds(got))
	data, ok := got[1].Outcome.Value()
	require.True(t, ok)
	assert.Equal(t, "PO-1", data.OrderID)
	assert.Equal(t, "PO-1", got[1].OrderID)
}

func TestSubmitBlankNeverReachesNetwork(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{fn: func(id string) (*models.RawReply, error) { return successReply(id), nil }}
	p, loop, ch, rec := newTestPipeline(t, req)

	var inputErrors []string
	var mu sync.Mutex
	ch.InputErrors.Subscribe(func(msg string) {
		mu.Lock()
		inputErrors = append(inputErrors, msg)
		mu.Unlock()
	})

	for _, blank := range []string{"", "   ", "\t\n"} {
		_, err := p.Submit(context.Background(), blank)
		assert.ErrorIs(t, err, apperrors.ErrBlankOrderID)
		assert.Equal(t, apperrors.KindValidation, apperrors.GetKind(err))
	}
	require.NoError(t, loop.Sync(context.Background()))

	assert.Zero(t, atomic.LoadInt32(&req.calls))
	assert.Empty(t, rec.snapshot())
	assert.Zero(t, p.Generation())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{BlankOrderIDMessage, BlankOrderIDMessage, BlankOrderIDMessage}, inputErrors)
}

func TestNewerSubmissionDropsOlderResult(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	req := &fakeRequester{fn: func(id string) (*models.RawReply, error) {
		if id == "OLD" {
			<-release
		}
		return successReply(id), nil
	}}
	p, loop, _, rec := newTestPipeline(t, req)

	_, err := p.Submit(context.Background(), "OLD")
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), "NEW")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) > 0 && got[len(got)-1].Outcome.IsTerminal()
	}, 2*time.Second, 5*time.Millisecond)

	close(release)

	// OLD loading, NEW loading, NEW terminal, OLD terminal
	require.Eventually(t, func() bool { return atomic.LoadInt32(&loop.posts) == 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, loop.Sync(context.Background()))

	var terminals []presentation.Update
	for _, u := range rec.snapshot() {
		if u.Outcome.IsTerminal() {
			terminals = append(terminals, u)
		}
	}
	require.Len(t, terminals, 1)
	assert.Equal(t, "NEW", terminals[0].OrderID)
	assert.Equal(t, uint64(2), terminals[0].Generation)
}

func TestSubmitMapsErrorsToOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fn       func(string) (*models.RawReply, error)
		wantKind outcome.Kind
		wantCode int
		wantMsg  string
	}{
		{
			name:     "transport_failure",
			fn:       func(string) (*models.RawReply, error) { return nil, apperrors.ErrTransport("POST", errors.New("dial tcp: i/o timeout")) },
			wantKind: outcome.KindFailure,
			wantMsg:  "Network error: dial tcp: i/o timeout",
		},
		{
			name: "business_error",
			fn: func(string) (*models.RawReply, error) {
				return &models.RawReply{Code: 0, Business: &models.Business{BizCode: strPtr("4001"), BizMessage: strPtr("order expired")}}, nil
			},
			wantKind: outcome.KindError,
			wantCode: 4001,
			wantMsg:  "order expired",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, _, _, rec := newTestPipeline(t, &fakeRequester{fn: tt.fn})
			_, err := p.Submit(context.Background(), "PO-7")
			require.NoError(t, err)

			require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)

			last := rec.snapshot()[1].Outcome
			assert.Equal(t, tt.wantKind, last.Kind())
			assert.Equal(t, tt.wantCode, last.Code())
			assert.Equal(t, tt.wantMsg, last.Message())
		})
	}
}

func TestRequestContextCancellationDoesNotAbortCall(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	req := &fakeRequester{fn: func(id string) (*models.RawReply, error) {
		close(started)
		<-release
		return successReply(id), nil
	}}
	p, _, _, rec := newTestPipeline(t, req)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := p.Submit(ctx, "PO-2")
	require.NoError(t, err)

	<-started
	cancel()
	close(release)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, outcome.KindSuccess, rec.snapshot()[1].Outcome.Kind())
}

func TestPanickingRequestStillEndsInFailure(t *testing.T) {
	t.Parallel()

	req := &fakeRequester{fn: func(string) (*models.RawReply, error) { panic("decoder blew up") }}
	p, _, _, rec := newTestPipeline(t, req)

	gen, err := p.Submit(context.Background(), "PO-9")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	assert.Equal(t, []outcome.Kind{outcome.KindLoading, outcome.KindFailure}, kinds(got))
	assert.Equal(t, gen, got[1].Generation)
	assert.ErrorIs(t, got[1].Outcome.Cause(), errJobAborted)
}
