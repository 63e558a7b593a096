package service

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/metrics"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/normalize"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/validator"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/worker"
)

// BlankOrderIDMessage es lo que ve el operador cuando envía un id vacío
const BlankOrderIDMessage = "Please enter order ID"

var (
	errPipelineStopped = errors.New("signature pipeline is shutting down")
	errJobAborted      = errors.New("signature request aborted unexpectedly")
)

// SignatureRequester es la llamada remota; *api.SignatureService la implementa
type SignatureRequester interface {
	RequestSignature(ctx context.Context, orderID string) (*models.RawReply, error)
}

// Dispatcher ejecuta trabajo de fondo
type Dispatcher interface {
	Submit(job worker.Job) bool
}

// Poster serializa la publicación en un único goroutine
type Poster interface {
	Post(fn func()) bool
}

// SignaturePipeline convierte un order id en exactamente un Outcome terminal.
//
// Cada envío válido incrementa la generación. Los resultados se entregan en el
// loop de publicación y solo se publican si su generación sigue siendo la
// actual; un envío nuevo deja de escuchar al anterior sin cancelarlo en la red.
type SignaturePipeline struct {
	requester  SignatureRequester
	pool       Dispatcher
	loop       Poster
	channel    *presentation.Channel
	validator  *validator.RequestValidator
	generation atomic.Uint64
}

func NewSignaturePipeline(
	requester SignatureRequester,
	pool Dispatcher,
	loop Poster,
	channel *presentation.Channel,
) *SignaturePipeline {
	return &SignaturePipeline{
		requester: requester,
		pool:      pool,
		loop:      loop,
		channel:   channel,
		validator: validator.NewRequestValidator(),
	}
}

// Submit valida el id y lanza la petición. Devuelve la generación asignada.
// Un id en blanco solo publica el error de entrada: ni Loading ni red.
func (p *SignaturePipeline) Submit(ctx context.Context, orderID string) (uint64, error) {
	logger := logging.FromContext(ctx)

	id, err := p.validator.ValidateOrderID(orderID)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, apperrors.ErrBlankOrderID) {
			msg = BlankOrderIDMessage
		}
		metrics.RecordInputError()
		logger.Info("submission rejected", zap.String("reason", msg))
		p.loop.Post(func() { p.channel.InputErrors.Publish(msg) })
		return 0, apperrors.ErrValidation("order_id", err)
	}

	gen := p.generation.Add(1)
	logger = logger.With(zap.String("order_id", id), zap.Uint64("generation", gen))
	logger.Info("signature submission accepted")

	// Loading entra al loop antes de que exista el job, así que siempre precede al terminal
	p.loop.Post(func() { p.deliver(gen, id, outcome.Loading[models.SignatureData]()) })

	callCtx := logging.WithLoggingFields(context.WithoutCancel(ctx), "", id)
	accepted := p.pool.Submit(func(context.Context) {
		delivered := false
		// si el job entra en pánico el pool lo recupera, pero Loading ya salió:
		// se publica un Failure para que nadie se quede esperando
		defer func() {
			if !delivered {
				logger.Error("signature job ended without a result")
				p.loop.Post(func() {
					p.deliver(gen, id, outcome.Failure[models.SignatureData](errJobAborted))
				})
			}
		}()

		result := p.fetch(callCtx, id)
		delivered = p.loop.Post(func() { p.deliver(gen, id, result) })
	})
	if !accepted {
		logger.Error("worker pool stopped, failing submission")
		p.loop.Post(func() {
			p.deliver(gen, id, outcome.Failure[models.SignatureData](errPipelineStopped))
		})
	}

	return gen, nil
}

// Generation devuelve la generación del envío vigente (0 si no hubo ninguno)
func (p *SignaturePipeline) Generation() uint64 {
	return p.generation.Load()
}

func (p *SignaturePipeline) fetch(ctx context.Context, orderID string) normalize.Result {
	reply, err := p.requester.RequestSignature(ctx, orderID)
	if err != nil {
		return outcome.Failure[models.SignatureData](err)
	}

	result := normalize.Normalize(reply)
	if result.Kind() == outcome.KindError {
		logging.FromContext(ctx).Warn("signature rejected by backend",
			zap.Error(apperrors.ErrBusiness(result.Code(), result.Message())),
		)
	}
	return result
}

// deliver corre en el loop de publicación
func (p *SignaturePipeline) deliver(gen uint64, orderID string, result normalize.Result) {
	if current := p.generation.Load(); gen != current {
		if result.IsTerminal() {
			metrics.RecordStaleResult()
			zap.L().Info("discarding superseded result",
				zap.String("order_id", orderID),
				zap.Uint64("generation", gen),
				zap.Uint64("current", current),
				zap.String("kind", result.Kind().String()),
			)
		}
		return
	}

	metrics.RecordOutcome(result.Kind().String())
	p.channel.Outcomes.Publish(presentation.Update{
		Generation: gen,
		OrderID:    orderID,
		Outcome:    result,
	})
}
