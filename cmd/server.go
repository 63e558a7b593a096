package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/juancollazo-ch/gatepay-signature-service/internal/api"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/cashier"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/config"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/handlers"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/logging"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/metrics"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/models"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/presentation"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/restart"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/service"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/settings"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/surface"
	"github.com/juancollazo-ch/gatepay-signature-service/internal/worker"
)

const (
	serviceName    = "gatepay-signature-service"
	serviceVersion = "1.0.0"
)

// Convertir niveles de Zap a severidad de GCP Cloud Logging
func zapLevelToGCPSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("CRITICAL")
	case zapcore.FatalLevel:
		enc.AppendString("EMERGENCY")
	default:
		enc.AppendString("DEFAULT")
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	// Configurar para Cloud Logging (JSON estructurado)
	zapConfig.EncoderConfig.MessageKey = "message"
	zapConfig.EncoderConfig.LevelKey = "severity"
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeLevel = zapLevelToGCPSeverity
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zapConfig.Build()
}

// MAIN: inicializa servidor, workers y dependencias
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Reemplazar logger global
	zap.ReplaceGlobals(logger)

	if err := config.Validate(cfg); err != nil {
		zap.L().Error("Invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		zap.L().Error("Server stopped unexpectedly", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initial, err := settings.FromStrings(cfg.Appearance.Language, cfg.Appearance.Theme, cfg.Appearance.Mode)
	if err != nil {
		return err
	}

	// Inicializar dependencias
	transport := api.Shared(cfg)
	signatures := api.NewSignatureService(transport, cfg.Signature.Endpoint(), cfg.Signature.PackageTag)
	opener := cashier.NewOpener(transport, cfg.Cashier.URL, cfg.Signature.PackageTag)

	loop := worker.NewLoop(0)
	pool := worker.NewWorkerPool(cfg.Workers, 0)
	channel := presentation.NewChannel()
	pipeline := service.NewSignaturePipeline(signatures, pool, loop, channel)

	deps := surface.Deps{
		Pipeline: pipeline,
		Channel:  channel,
		Cashier:  opener,
		Pool:     pool,
		Loop:     loop,
		OrderID:  cfg.OrderID,
	}
	coord := restart.NewCoordinator[*surface.Surface](
		settings.NewStore(initial, zap.L()),
		func(saved, forwarded *models.RestartSnapshot) (*surface.Surface, error) {
			s := surface.New(deps, saved, forwarded)
			s.Attach()
			return s, nil
		},
		loop,
	)
	if err := coord.Start(); err != nil {
		return err
	}

	console := handlers.NewConsoleHandler(coord, channel, cfg.Console.SubmitRPS, cfg.Console.SubmitBurst)

	// HTTP ROUTES
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/pending", withLogging(console.SetPending))
	mux.HandleFunc("/signature", withLogging(console.Submit))
	mux.HandleFunc("/state", withLogging(console.State))
	mux.HandleFunc("/settings", withLogging(console.ChangeSettings))
	mux.HandleFunc("/recreate", withLogging(console.Recreate))
	mux.HandleFunc("/events", console.Events)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      metrics.InstrumentHandler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return coord.Run(gctx) })
	g.Go(func() error {
		zap.L().Info("Server started", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// GRACEFUL SHUTDOWN
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Graceful shutdown failed", zap.Error(err))
			return err
		}
		zap.L().Info("Server exited")
		return nil
	})

	return g.Wait()
}

// MIDDLEWARE: Logging con Trace ID compatible con GCP
func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := traceIDFromHeader(r.Header.Get("X-Cloud-Trace-Context"))
		if traceID == "" {
			traceID = fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
		}

		// Obtener Project ID para el formato completo de trace
		projectID := os.Getenv("GCP_PROJECT")
		if projectID == "" {
			projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}

		// Guardar traceID en contexto
		ctx := logging.WithTraceID(r.Context(), traceID)

		logFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.String("httpRequest.remoteIp", r.RemoteAddr),
			zap.String("httpRequest.userAgent", r.UserAgent()),
		}
		if projectID != "" {
			logFields = append(logFields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
		}

		zap.L().Info("Request started", logFields...)

		next(w, r.WithContext(ctx))

		duration := time.Since(start)

		completedFields := []zap.Field{
			zap.String("httpRequest.requestMethod", r.Method),
			zap.String("httpRequest.requestUrl", r.URL.Path),
			zap.Int64("httpRequest.latency.milliseconds", duration.Milliseconds()),
			zap.Float64("httpRequest.latency.seconds", duration.Seconds()),
		}
		if projectID != "" {
			completedFields = append(completedFields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
		}

		zap.L().Info("Request completed", completedFields...)
	}
}

// Formato: TRACE_ID/SPAN_ID;o=TRACE_TRUE. Solo necesitamos TRACE_ID
func traceIDFromHeader(header string) string {
	if slashIdx := strings.IndexByte(header, '/'); slashIdx != -1 {
		return header[:slashIdx]
	}
	return header
}

// HEALTH CHECK
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
