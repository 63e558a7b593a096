package cashier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/api"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/metrics"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
)

// Código usado cuando el cashier no llegó a responder
const CodeUnreachable = -1

// Result es la respuesta del consumidor: abierto, o fallo con (code, message)
type Result struct {
	Opened  bool
	Code    int
	Message string
}

// Opener entrega la firma verificada al cashier para abrir la página de pago.
// Un solo intento: el reintento del pago no es responsabilidad de este servicio.
type Opener struct {
	transport  api.Sender
	url        string
	packageTag string
}

func NewOpener(transport api.Sender, url, packageTag string) *Opener {
	return &Opener{
		transport:  transport,
		url:        url,
		packageTag: packageTag,
	}
}

// Open nunca devuelve error: cualquier fallo se reporta como Result.
func (o *Opener) Open(ctx context.Context, data models.SignatureData) Result {
	logger := logging.FromContext(ctx).With(zap.String("order_id", data.OrderID))

	res := o.open(ctx, data)
	metrics.RecordCashierOpen(res.Opened)

	if res.Opened {
		logger.Info("payment page opened")
	} else {
		logger.Error("payment page open failed",
			zap.Int("code", res.Code),
			zap.String("message", res.Message),
		)
	}
	return res
}

func (o *Opener) open(ctx context.Context, data models.SignatureData) Result {
	if !data.Usable() {
		return Result{Code: CodeUnreachable, Message: "incomplete signature data"}
	}

	payload, err := json.Marshal(data.ToCashierPayload(o.packageTag))
	if err != nil {
		return Result{Code: CodeUnreachable, Message: fmt.Sprintf("error marshaling payload: %v", err)}
	}

	resp, err := o.transport.Send(ctx, api.Call{
		Target:  api.TargetCashier,
		Method:  http.MethodPost,
		URL:     o.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		return Result{Code: CodeUnreachable, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Code: resp.StatusCode, Message: fmt.Sprintf("cashier failed with status: %d", resp.StatusCode)}
	}

	var reply models.CashierReply
	if err := json.Unmarshal(resp.Body, &reply); err != nil {
		return Result{Code: CodeUnreachable, Message: fmt.Sprintf("invalid cashier reply: %v", err)}
	}
	if reply.Code != 0 {
		return Result{Code: reply.Code, Message: reply.Message}
	}
	return Result{Opened: true}
}
