package log

import (
	"context"
	"os"

	"github.com/davazp/iredb/effects"
	effectmodel "github.com/davazp/iredb/effects/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity level for log messages.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogPayload is the payload of the log effect.
type LogPayload struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
}

// WithZapEffectHandler registers a fire-and-forget log effect handler writing
// to logger. Lines still queued when the returned end function is called are
// written before the logger is synced.
func WithZapEffectHandler(
	ctx context.Context,
	bufferSize int,
	logger *zap.Logger,
) (context.Context, func() context.Context) {
	return effects.WithFireAndForgetEffectHandler(
		ctx,
		effects.NewEffectScopeConfig(bufferSize, 1),
		effectmodel.EffectLog,
		func(ctx context.Context, payload LogPayload) {
			write(logger, payload)
		},
		func() {
			// stdout/stderr cannot be synced on some platforms; nothing to report there
			_ = logger.Sync()
		},
	)
}

// WithTestEffectHandler installs a log handler printing every level to stdout
// in zap's development console format.
func WithTestEffectHandler(
	ctx context.Context,
) (context.Context, func() context.Context) {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
	return WithZapEffectHandler(ctx, 16, zap.New(consoleCore))
}

// HasEffectHandler reports whether a log handler is installed in ctx.
func HasEffectHandler(ctx context.Context) bool {
	return effects.HasEffectHandler(ctx, effectmodel.EffectLog)
}

// Effect performs a fire-and-forget log effect using the handler in ctx.
// Panics if no log handler is installed.
func Effect(ctx context.Context, level LogLevel, msg string, fields map[string]any) {
	effects.FireAndForgetEffect(ctx, effectmodel.EffectLog, LogPayload{
		Level:   level,
		Message: msg,
		Fields:  fields,
	})
}

func write(logger *zap.Logger, payload LogPayload) {
	fields := make([]zap.Field, 0, len(payload.Fields))
	for k, v := range payload.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch payload.Level {
	case LogDebug:
		logger.Debug(payload.Message, fields...)
	case LogWarn:
		logger.Warn(payload.Message, fields...)
	case LogError:
		logger.Error(payload.Message, fields...)
	default:
		logger.Info(payload.Message, fields...)
	}
}
