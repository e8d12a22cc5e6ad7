package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the API server and the reprocess command.
// Init(level) selects the minimum level; request handlers use FromContext
// so every line carries the request id.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

type ctxKey struct{}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

func header(lvl, requestID string) string {
	h := fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl))
	if requestID != "" {
		h += "req=" + requestID + " "
	}
	return h
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func printf(l Level, lvl, requestID, format string, v ...interface{}) {
	if !shouldLog(l) {
		return
	}
	logger.Printf(header(lvl, requestID)+format, v...)
}

func Debugf(format string, v ...interface{}) { printf(LevelDebug, "debug", "", format, v...) }
func Infof(format string, v ...interface{})  { printf(LevelInfo, "info", "", format, v...) }
func Warnf(format string, v ...interface{})  { printf(LevelWarn, "warn", "", format, v...) }
func Errorf(format string, v ...interface{}) { printf(LevelError, "error", "", format, v...) }

func Fatalf(format string, v ...interface{}) {
	logger.Printf(header("fatal", "")+format, v...)
	os.Exit(1)
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// WithRequestID stores the request id used to tag lines written through FromContext.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Entry writes lines tagged with a request id.
type Entry struct {
	requestID string
}

// FromContext returns an Entry bound to the request id in ctx.
func FromContext(ctx context.Context) Entry {
	return Entry{requestID: RequestID(ctx)}
}

func (e Entry) Debugf(format string, v ...interface{}) {
	printf(LevelDebug, "debug", e.requestID, format, v...)
}

func (e Entry) Infof(format string, v ...interface{}) {
	printf(LevelInfo, "info", e.requestID, format, v...)
}

func (e Entry) Warnf(format string, v ...interface{}) {
	printf(LevelWarn, "warn", e.requestID, format, v...)
}

func (e Entry) Errorf(format string, v ...interface{}) {
	printf(LevelError, "error", e.requestID, format, v...)
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
