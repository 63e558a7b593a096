package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models/serviceresponse"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/outcome"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
)

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// consola local: cualquier origen
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /events: stream de outcomes, logs y errores de entrada.
// Un cliente nuevo recibe primero el último valor de cada flujo.
func (h *ConsoleHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events := make(chan serviceresponse.EventMessage, eventBuffer)
	push := func(msg serviceresponse.EventMessage) {
		// los callbacks corren dentro del Publish: nunca bloquear
		select {
		case events <- msg:
		default:
			zap.L().Warn("Event dropped, slow websocket client", zap.String("channel", msg.Channel))
		}
	}

	unsubs := []func(){
		h.channel.Outcomes.Subscribe(func(u presentation.Update) { push(outcomeEvent(u)) }),
		h.channel.Logs.Subscribe(func(line string) {
			push(serviceresponse.EventMessage{Channel: "log", Message: line})
		}),
		h.channel.InputErrors.Subscribe(func(msg string) {
			push(serviceresponse.EventMessage{Channel: "input_error", Message: msg})
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	// lector: solo para detectar el cierre del cliente
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				zap.L().Debug("Websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func outcomeEvent(u presentation.Update) serviceresponse.EventMessage {
	msg := serviceresponse.EventMessage{
		Channel:    "outcome",
		Kind:       u.Outcome.Kind().String(),
		Generation: u.Generation,
		OrderID:    u.OrderID,
		Code:       u.Outcome.Code(),
		Message:    u.Outcome.Message(),
	}
	switch u.Outcome.Kind() {
	case outcome.KindSuccess:
		data, _ := u.Outcome.Value()
		msg.Timestamp = data.Timestamp
		msg.Nonce = data.Nonce
		msg.Signature = data.Signature
	case outcome.KindError:
		appErr := apperrors.ErrBusiness(u.Outcome.Code(), u.Outcome.Message())
		msg.ErrorKind, msg.Retryable = appErr.Kind, appErr.Retryable
	case outcome.KindFailure:
		msg.ErrorKind = apperrors.GetKind(u.Outcome.Cause())
		msg.Retryable = apperrors.IsRetryable(u.Outcome.Cause())
	}
	return msg
}
