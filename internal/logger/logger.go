package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
	LevelFatal   = slog.Level(12)
)

var (
	Logger          *slog.Logger
	errorSampleRate atomic.Int32
	programLevel    = new(slog.LevelVar)
	shutdownFunc    func(context.Context) error // nil unless OTel export is on
)

// Counters exposed on the health endpoint, incremented regardless of sampling
var (
	TotalErrors       atomic.Int64
	TotalWarnings     atomic.Int64
	Total5xxErrors    atomic.Int64
	Total4xxErrors    atomic.Int64
	Total400Errors    atomic.Int64
	Total404Errors    atomic.Int64
	ValidationsFailed atomic.Int64
	TablesSaved       atomic.Int64
)

// Options configures Setup
type Options struct {
	Level       slog.Level
	SampleRate  int    // log 1 of every N warnings/errors; <= 1 logs all
	OTelEnabled bool   // export through OTLP/gRPC instead of JSON on stdout
	ServiceName string // OTel service.name
	Output      io.Writer
}

func init() {
	programLevel.Set(slog.LevelInfo)
	errorSampleRate.Store(1)
	setupJSONLogging(os.Stdout)
}

// Setup replaces the process logger. When OTel export cannot be set up the
// logger falls back to JSON and the error is returned.
func Setup(ctx context.Context, opts Options) error {
	programLevel.Set(opts.Level)
	if opts.SampleRate > 0 {
		errorSampleRate.Store(int32(opts.SampleRate))
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	if !opts.OTelEnabled {
		setupJSONLogging(out)
		return nil
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "rules-editor"
	}
	shutdown, err := setupOTELLogging(ctx, serviceName)
	if err != nil {
		setupJSONLogging(out)
		return fmt.Errorf("failed to setup OTEL logging, using JSON: %w", err)
	}
	shutdownFunc = shutdown
	return nil
}

func setupJSONLogging(out io.Writer) {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: programLevel})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func setupOTELLogging(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(loggerProvider),
	)

	Logger = slog.New(&levelHandler{level: programLevel, handler: otelHandler})
	slog.SetDefault(Logger)

	return loggerProvider.Shutdown, nil
}

// levelHandler wraps a handler to filter by level
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTel exporter, if any
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel sets the minimum log level
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s (defaulting to INFO)", levelStr)
	}
}

func shouldSample() bool {
	rate := errorSampleRate.Load()
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// Trace logs a trace-level message
func Trace(msg string, args ...any) {
	Logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs a debug-level message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info-level message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a sampled warning; the counter is always incremented
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error logs a sampled error; the counter is always incremented
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs and exits
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// CountStatus records an HTTP response status in the HTTP counters.
// TotalErrors and TotalWarnings are left to Error and Warn.
func CountStatus(status int) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
		switch status {
		case 400:
			Total400Errors.Add(1)
		case 404:
			Total404Errors.Add(1)
		}
	}
}

// Counters returns a snapshot of the counters
func Counters() map[string]int64 {
	return map[string]int64{
		"errors":            TotalErrors.Load(),
		"warnings":          TotalWarnings.Load(),
		"http5xx":           Total5xxErrors.Load(),
		"http4xx":           Total4xxErrors.Load(),
		"http400":           Total400Errors.Load(),
		"http404":           Total404Errors.Load(),
		"validationsFailed": ValidationsFailed.Load(),
		"tablesSaved":       TablesSaved.Load(),
	}
}
