// Package audit emits the structured JSON-lines audit log consulted by
// security review. One object per line, schema:
//
//	{"timestamp": ISO-8601, "event_type": ..., "result": ..., "operation": ..., "context": {...}}
//
// Audit writes are best-effort: a failure to open or append the log never
// breaks the calling operation. The only side effect of a broken audit
// destination is a single note on stderr.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event types recorded in the audit log.
const (
	EventPathValidation    = "PATH_VALIDATION"
	EventInputValidation   = "INPUT_VALIDATION"
	EventAgentTransition   = "AGENT_TRANSITION"
	EventAutoTrack         = "AUTO_TRACK"
	EventPhaseVerification = "PHASE_VERIFICATION"
	EventStoreWrite        = "STORE_WRITE"
)

// Results recorded in the audit log.
const (
	ResultAllowed = "ALLOWED"
	ResultBlocked = "BLOCKED"
	ResultSuccess = "SUCCESS"
	ResultFailure = "FAILURE"
	ResultSkipped = "SKIPPED"
)

// EnvLogPath overrides the audit log destination.
const EnvLogPath = "AUDIT_LOG_PATH"

// Logger appends audit events to a JSON-lines file. The zero value and the
// nil pointer are both safe no-op loggers.
type Logger struct {
	log    *zap.Logger
	closer func() error
}

// encoderConfig maps zap's JSON output onto the audit schema: the message
// becomes "operation" and the timestamp key is "timestamp". Level, caller
// and stacktrace keys are omitted.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "operation",
		LevelKey:       zapcore.OmitKey,
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
}

// Open creates a logger appending to the given path, creating parent
// directories as needed. On any error it returns a no-op logger after a
// single stderr note; the caller proceeds regardless.
func Open(path string) *Logger {
	if path == "" {
		return &Logger{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "pipetrack: audit log unavailable: %v\n", err)
		return &Logger{}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipetrack: audit log unavailable: %v\n", err)
		return &Logger{}
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(zapcore.AddSync(f)),
		zapcore.InfoLevel,
	)

	return &Logger{
		log:    zap.New(core),
		closer: f.Close,
	}
}

// Discard returns a logger that drops every event. Used in tests and when
// no audit destination is configured.
func Discard() *Logger {
	return &Logger{}
}

// Emit appends one audit record. ctx may be nil; an event id is attached so
// records from concurrent writers remain distinguishable.
func (l *Logger) Emit(eventType, result, operation string, ctx map[string]any) {
	if l == nil || l.log == nil {
		return
	}
	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["event_id"] = uuid.NewString()

	l.log.Info(operation,
		zap.String("event_type", eventType),
		zap.String("result", result),
		zap.Any("context", ctx),
	)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.log == nil {
		return nil
	}
	_ = l.log.Sync()
	if l.closer != nil {
		return l.closer()
	}
	return nil
}
