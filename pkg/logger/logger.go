package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Unknown level names fall back to info.
// Development selects the console encoder with colored levels.
func New(level string, development bool) *zap.Logger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if parsed, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}

	return zap.Must(cfg.Build())
}

// WithTrace returns the logger annotated with the current trace and span
// ids when the context carries a sampled span, so log lines can be joined
// to traces. Without one it returns the logger unchanged.
func WithTrace(ctx context.Context, logger *zap.SugaredLogger) *zap.SugaredLogger {
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return logger
	}
	return logger.With(
		"trace_id", span.TraceID().String(),
		"span_id", span.SpanID().String(),
	)
}
