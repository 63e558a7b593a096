package api

import (
	"bytes"
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/config"
	apperrors "github.com/juancollazo-ch/gatepay-signature-service/internal/errors"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/metrics"
)

// Destinos de las llamadas salientes. Cada uno tiene su propio circuit breaker
// para que la caída del cashier no bloquee la firma.
const (
	TargetSignature = "signature"
	TargetCashier   = "cashier"
)

// Call es una petición saliente ya serializada
type Call struct {
	// Target agrupa la llamada para breaker y métricas; vacío = "default"
	Target  string
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response es la respuesta cruda del servidor remoto
type Response struct {
	StatusCode int
	Body       []byte
}

// TransportClient es el cliente HTTP compartido por todas las llamadas salientes.
// Timeouts, TLS y tracing quedan fijos al crearlo. El http.Client es uno solo;
// los breakers son uno por Target.
type TransportClient struct {
	http *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	failures uint32
	open     time.Duration
}

var (
	sharedOnce   sync.Once
	sharedClient *TransportClient
)

// Shared devuelve el cliente del proceso. Se crea una sola vez aunque varios
// goroutines lo pidan a la vez; la configuración de llamadas posteriores se ignora.
func Shared(cfg *config.Config) *TransportClient {
	sharedOnce.Do(func() {
		sharedClient = NewTransportClient(cfg)
	})
	return sharedClient
}

// NewTransportClient crea un cliente no compartido
func NewTransportClient(cfg *config.Config) *TransportClient {
	t := cfg.Transport

	dialer := &net.Dialer{Timeout: t.ConnectTimeout()}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   t.ConnectTimeout(),
		ResponseHeaderTimeout: t.ReadTimeout(),
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}

	// Solo para pruebas contra backends con certificados de desarrollo
	if cfg.Debug && t.TrustAllCerts {
		zap.L().Warn("TLS certificate verification disabled (debug build)")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	var rt http.RoundTripper = transport
	if cfg.Debug && t.Trace {
		rt = &tracingRoundTripper{next: transport}
	}

	return &TransportClient{
		http: &http.Client{
			Transport: rt,
			// connect + subir el body + esperar y leer la respuesta
			Timeout: t.ConnectTimeout() + t.WriteTimeout() + t.ReadTimeout(),
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		failures: uint32(t.BreakerFailures),
		open:     t.BreakerOpen(),
	}
}

// breakerFor devuelve el breaker del destino, creándolo la primera vez
func (c *TransportClient) breakerFor(target string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[target]; ok {
		return cb
	}

	failures := c.failures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        target,
		MaxRequests: 1,
		Timeout:     c.open,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerOpen(name, to != gobreaker.StateClosed)
		},
	})
	c.breakers[target] = cb
	return cb
}

// Send ejecuta una sola llamada. Los errores de red salen como AppError de tipo
// transport; un status no-2xx NO es error aquí, lo decide quien llama.
func (c *TransportClient) Send(ctx context.Context, call Call) (*Response, error) {
	logger := logging.FromContext(ctx)

	target := call.Target
	if target == "" {
		target = "default"
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, bytes.NewReader(call.Body))
	if err != nil {
		return nil, apperrors.ErrTransport("building request", err)
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	out, err := c.breakerFor(target).Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
		return &Response{StatusCode: resp.StatusCode, Body: body}, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordTransportCall(target, "circuit_open", elapsed)
			logger.Warn("call rejected by circuit breaker",
				zap.String("target", target),
				zap.String("url", call.URL),
			)
			return nil, apperrors.ErrCircuitOpen(call.URL, err)
		}
		metrics.RecordTransportCall(target, "transport_error", elapsed)
		logger.Error("transport error",
			zap.String("target", target),
			zap.String("url", call.URL),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, apperrors.ErrTransport(call.Method+" "+call.URL, err)
	}

	resp := out.(*Response)
	result := "ok"
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result = "http_error"
	}
	metrics.RecordTransportCall(target, result, elapsed)

	return resp, nil
}

// tracingRoundTripper registra cada intercambio en nivel debug
type tracingRoundTripper struct {
	next http.RoundTripper
}

func (t *tracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := logging.FromContext(req.Context())

	logger.Debug("--> http request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Any("headers", req.Header),
		zap.Int64("content_length", req.ContentLength),
	)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		logger.Debug("<-- http failed", zap.String("url", req.URL.String()), zap.Error(err))
		return nil, err
	}

	logger.Debug("<-- http response",
		zap.Int("status", resp.StatusCode),
		zap.String("url", req.URL.String()),
		zap.Any("headers", resp.Header),
		zap.Int64("content_length", resp.ContentLength),
	)
	if resp.ContentLength == 0 {
		logger.Warn("empty response body", zap.String("url", req.URL.String()))
	}
	return resp, nil
}
