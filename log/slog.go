package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const instrumentationName = "github.com/hyperledger-labs/yui-bridge-relayer"

type RelayLogger struct {
	*slog.Logger
}

var relayLogger *RelayLogger

func InitLogger(logLevel, format, output string, enableTelemetry bool) error {
	// output
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.Newf("invalid log output: %q", output)
	}
	return InitLoggerWithWriter(logLevel, format, writer, enableTelemetry)
}

func InitLoggerWithWriter(logLevel, format string, writer io.Writer, enableTelemetry bool) error {
	// level
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return errors.Wrapf(err, "invalid log level: %q", logLevel)
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}

	// format
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return errors.Newf("invalid log format: %q", format)
	}

	if enableTelemetry {
		handler = slogmulti.Fanout(
			handler,
			otelslog.NewHandler(instrumentationName, otelslog.WithSource(true)),
		)
	}

	// set global logger
	relayLogger = &RelayLogger{
		slog.New(handler),
	}
	return nil
}

// GetLogger returns the process-wide logger. A text logger writing to stderr
// is used until InitLogger has been called.
func GetLogger() *RelayLogger {
	if relayLogger == nil {
		return &RelayLogger{slog.Default()}
	}
	return relayLogger
}

func (rl *RelayLogger) log(logLevel slog.Level, skipCallDepth int, msg string, args ...any) {
	rl.logContext(context.Background(), logLevel, skipCallDepth+1, msg, args...)
}

func (rl *RelayLogger) logContext(ctx context.Context, logLevel slog.Level, skipCallDepth int, msg string, args ...any) {
	if !rl.Logger.Enabled(ctx, logLevel) {
		return
	}

	var pcs [1]uintptr
	// skip [runtime.Callers, logContext, the wrappers below the caller]
	runtime.Callers(skipCallDepth+2, pcs[:])

	r := slog.NewRecord(time.Now(), logLevel, msg, pcs[0])
	r.Add(args...)
	_ = rl.Logger.Handler().Handle(ctx, r)
}

func errorArgs(err error, otherArgs []any) []any {
	if err == nil {
		return otherArgs
	}
	cError := errors.WithStackDepth(err, 2)
	return append([]any{"error", err.Error(), "stack", fmt.Sprintf("%+v", cError)}, otherArgs...)
}

// Error logs err together with its stack.
func (rl *RelayLogger) Error(msg string, err error, otherArgs ...any) {
	rl.logContext(context.Background(), slog.LevelError, 1, msg, errorArgs(err, otherArgs)...)
}

func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	rl.logContext(ctx, slog.LevelError, 1, msg, errorArgs(err, otherArgs)...)
}

func (rl *RelayLogger) WarnErrorContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	rl.logContext(ctx, slog.LevelWarn, 1, msg, errorArgs(err, otherArgs)...)
}

func (rl *RelayLogger) Fatal(msg string, err error, otherArgs ...any) {
	rl.logContext(context.Background(), slog.LevelError, 1, msg, errorArgs(err, otherArgs)...)
	panic(msg)
}

func (rl *RelayLogger) FatalContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	rl.logContext(ctx, slog.LevelError, 1, msg, errorArgs(err, otherArgs)...)
	panic(msg)
}

// With returns a RelayLogger that includes the given attributes in each output.
func (rl *RelayLogger) With(args ...any) *RelayLogger {
	return &RelayLogger{rl.Logger.With(args...)}
}

func (rl *RelayLogger) WithChain(
	srcChainID string,
	dstChainID string,
) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With(
			"source_chain_id", srcChainID,
			"target_chain_id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithPipeline(
	name, kind string,
) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With(
			"pipeline", name,
			"pipeline_kind", kind,
		),
	}
}

func (rl *RelayLogger) WithLane(
	lane, srcChainID, dstChainID string,
) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With(
			"lane", lane,
			"source_chain_id", srcChainID,
			"target_chain_id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithModule(
	moduleName string,
) *RelayLogger {
	return &RelayLogger{
		rl.Logger.With(
			"module", moduleName,
		),
	}
}
