// Package surface es la pantalla interactiva de pago: el order id que se está
// escribiendo, la última línea de log y el indicador de ocupado. Observa el
// canal de presentación y entrega las firmas exitosas al cashier.
package surface

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/cashier"
	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/worker"
)

// Líneas de log por cada outcome
const (
	LineLoading       = "Retrieving payment signature..."
	LineSuccess       = "Signature retrieved, opening payment..."
	LineUnusable      = "Signature incomplete, payment not opened"
	LineError         = "Signature retrieval failed: %s"
	LineFailure       = "Network error: %s"
	LineCashierOpened = "Payment page opened"
	LineCashierFailed = "Payment page failed to open (code: %d, message: %s)"
)

// Submitter inicia una solicitud de firma; *service.SignaturePipeline lo implementa
type Submitter interface {
	Submit(ctx context.Context, orderID string) (uint64, error)
}

// CashierOpener entrega la firma verificada a la página de pago
type CashierOpener interface {
	Open(ctx context.Context, data models.SignatureData) cashier.Result
}

type Dispatcher interface {
	Submit(job worker.Job) bool
}

type Poster interface {
	Post(fn func()) bool
}

// Deps son compartidas por todas las superficies del proceso
type Deps struct {
	Pipeline Submitter
	Channel  *presentation.Channel
	Cashier  CashierOpener
	Pool     Dispatcher
	Loop     Poster
	// id de arranque de una superficie nueva
	OrderID string
}

// State es una copia de lo que muestra la superficie
type State struct {
	ID              string
	PendingText     string
	LogLine         string
	Busy            bool
	LastInputError  string
	OriginalOrderID string
}

type Surface struct {
	deps   Deps
	id     string
	logger *zap.Logger

	mu              sync.Mutex
	pendingText     string
	logLine         string
	busy            bool
	lastInputError  string
	originalOrderID string
	closed          bool
	unsubs          []func()

	restored bool
}

// New arma una superficie desde saved, si no desde forwarded, si no vacía.
func New(deps Deps, saved, forwarded *models.RestartSnapshot) *Surface {
	s := &Surface{
		deps:            deps,
		id:              uuid.NewString(),
		originalOrderID: deps.OrderID,
	}
	s.logger = zap.L().With(zap.String("surface_id", s.id))

	snap := saved
	source := "saved"
	if snap == nil {
		snap, source = forwarded, "forwarded"
	}
	if snap != nil {
		s.restored = true
		s.pendingText = snap.PendingIdentifierText
		s.logLine = snap.LastLogLine
		if snap.OriginalOrderID != "" {
			s.originalOrderID = snap.OriginalOrderID
		}
		s.logger.Info("surface restored", zap.String("source", source))
	}

	// solo una superficie nueva toma el id de arranque; una restaurada conserva
	// el texto tal cual, aunque el operador lo haya dejado vacío
	if snap == nil && s.originalOrderID != "" {
		s.pendingText = s.originalOrderID
		s.logger.Debug("received order id", zap.String("order_id", s.originalOrderID))
	}
	return s
}

func (s *Surface) ID() string { return s.id }

// Attach suscribe la superficie al canal de presentación.
//
// Una superficie restaurada ignora los valores repetidos al suscribirse: ya
// muestra su estado, y repetir un Success abriría el pago dos veces. Una nueva
// los adopta sin entregar al cashier.
func (s *Surface) Attach() {
	var replayOutcome func(presentation.Update)
	var replayLog func(string)
	if !s.restored {
		replayOutcome = func(u presentation.Update) { s.render(u, true) }
		replayLog = s.onLog
	}

	ch := s.deps.Channel
	unsubs := []func(){
		ch.Outcomes.SubscribeWithReplay(replayOutcome, s.onOutcome),
		ch.Logs.SubscribeWithReplay(replayLog, s.onLog),
		// un error de entrada viejo no se vuelve a mostrar
		ch.InputErrors.SubscribeWithReplay(nil, s.onInputError),
	}

	s.mu.Lock()
	s.unsubs = unsubs
	s.mu.Unlock()
}

// Close desconecta la superficie. Ningún callback corre después.
func (s *Surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	s.logger.Info("surface closed")
}

// SetPendingText guarda lo que el operador lleva escrito
func (s *Surface) SetPendingText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrSurfaceClosed
	}
	s.pendingText = text
	return nil
}

// Submit pide la firma de orderID, o del texto pendiente si viene vacío
func (s *Surface) Submit(ctx context.Context, orderID string) (uint64, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, apperrors.ErrSurfaceClosed
	}
	if orderID == "" {
		orderID = s.pendingText
	} else {
		s.pendingText = orderID
	}
	s.lastInputError = ""
	s.mu.Unlock()

	ctx = logging.WithLoggingFields(ctx, s.id, strings.TrimSpace(orderID))
	return s.deps.Pipeline.Submit(ctx, orderID)
}

// Snapshot captura el estado que sobrevive a un reinicio
func (s *Surface) Snapshot() models.RestartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.RestartSnapshot{
		PendingIdentifierText: s.pendingText,
		LastLogLine:           s.logLine,
		OriginalOrderID:       s.originalOrderID,
	}
}

// Save es el guardado explícito de un cierre normal
func (s *Surface) Save() *models.RestartSnapshot {
	snap := s.Snapshot()
	return &snap
}

func (s *Surface) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:              s.id,
		PendingText:     s.pendingText,
		LogLine:         s.logLine,
		Busy:            s.busy,
		LastInputError:  s.lastInputError,
		OriginalOrderID: s.originalOrderID,
	}
}

// corre en el goroutine que publica
func (s *Surface) onOutcome(u presentation.Update) {
	s.render(u, false)
}

func (s *Surface) render(u presentation.Update, replay bool) {
	var line string
	busy := false
	u.Outcome.Match(
		func() {
			busy = true
			line = LineLoading
		},
		func(data models.SignatureData) {
			line = LineSuccess
			if !data.Usable() {
				line = LineUnusable
			}
			if !replay {
				s.handOff(u, data)
			}
		},
		func(_ int, message string) {
			line = fmt.Sprintf(LineError, message)
		},
		func(cause error) {
			line = fmt.Sprintf(LineFailure, failureText(cause))
		},
	)

	s.mu.Lock()
	s.busy = busy
	if replay {
		s.logLine = line
	}
	s.mu.Unlock()

	if !replay {
		s.deps.Channel.Logs.Publish(line)
	}
}

func (s *Surface) onLog(line string) {
	if line == "" {
		return
	}
	s.mu.Lock()
	s.logLine = line
	s.mu.Unlock()
}

func (s *Surface) onInputError(msg string) {
	s.mu.Lock()
	s.lastInputError = msg
	s.mu.Unlock()
}

func (s *Surface) handOff(u presentation.Update, data models.SignatureData) {
	logger := s.logger.With(zap.String("order_id", u.OrderID), zap.Uint64("generation", u.Generation))

	if !data.Usable() {
		logger.Warn("signature data incomplete, payment page not opened",
			zap.Bool("has_order_id", data.OrderID != ""),
			zap.Bool("has_timestamp", data.Timestamp != 0),
			zap.Bool("has_nonce", data.Nonce != ""),
			zap.Bool("has_signature", data.Signature != ""),
		)
		return
	}

	ctx := logging.WithLoggingFields(context.Background(), s.id, u.OrderID)
	accepted := s.deps.Pool.Submit(func(context.Context) {
		res := s.deps.Cashier.Open(ctx, data)

		line := LineCashierOpened
		if !res.Opened {
			line = fmt.Sprintf(LineCashierFailed, res.Code, res.Message)
		}
		s.deps.Loop.Post(func() { s.deps.Channel.Logs.Publish(line) })
	})
	if !accepted {
		logger.Error("worker pool stopped, payment page not opened")
	}
}

// failureText quita el prefijo "Network error" que ya trae el AppError
func failureText(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) && appErr.Internal != nil {
		return appErr.Internal.Error()
	}
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}
