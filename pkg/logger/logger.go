// Package logger implements the process-wide logging policy: a single
// logrus-backed sink, initialised once (by Init or on first use) and reset
// by Teardown, guarded by one mutex, with a console stream and an optional file stream.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level names accepted by SetLevel, case-insensitive.
type Level string

const (
	DEBUG   Level = "debug"
	INFO    Level = "info"
	WARNING Level = "warning"
	ERROR   Level = "error"
	FATAL   Level = "fatal"
)

// timestampLayout matches spec's "YYYY-MM-DD HH:MM:SS.uuuuuu" form.
const timestampLayout = "2006-01-02 15:04:05.000000"

var (
	mu      sync.Mutex
	logger  *logrus.Logger
	console io.Writer = os.Stderr
	file    *os.File
)

// Init sets up the singleton logger at INFO level writing to stderr. Safe
// to call more than once; later calls are no-ops once the logger exists.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	initLocked()
}

func initLocked() {
	if logger != nil {
		return
	}
	logger = logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampLayout,
	})
	logger.SetOutput(console)
}

// Teardown releases the optional file stream and resets the singleton so a
// subsequent Init starts clean. Mirrors the spec's init-at-startup,
// teardown-at-exit lifecycle.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
		file = nil
	}
	logger = nil
}

// SetLevel parses level case-insensitively into one of the five reporting
// thresholds. An unknown level warns and falls back to INFO, per spec §6.
func SetLevel(level string) Level {
	mu.Lock()
	defer mu.Unlock()
	initLocked()

	lvl, resolved := parseLevel(level)
	logger.SetLevel(lvl)
	if normalized := strings.ToLower(strings.TrimSpace(level)); resolved != Level(normalized) && normalized != "warn" {
		logger.Warnf("unknown log level %q, defaulting to info", level)
	}
	return resolved
}

func parseLevel(level string) (logrus.Level, Level) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case string(DEBUG):
		return logrus.DebugLevel, DEBUG
	case string(INFO):
		return logrus.InfoLevel, INFO
	case string(WARNING), "warn":
		return logrus.WarnLevel, WARNING
	case string(ERROR):
		return logrus.ErrorLevel, ERROR
	case string(FATAL):
		return logrus.FatalLevel, FATAL
	default:
		return logrus.InfoLevel, INFO
	}
}

// SetFile adds a file stream alongside the console stream. Passing an empty
// path removes any previously configured file stream.
func SetFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	initLocked()

	if file != nil {
		_ = file.Close()
		file = nil
	}
	if path == "" {
		logger.SetOutput(console)
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	file = f
	logger.SetOutput(io.MultiWriter(console, f))
	return nil
}

// Get returns the singleton logger, initialising it with defaults if this
// is the first access.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	initLocked()
	return logger
}

// Debugf/Infof/Warnf/Errorf are process-wide convenience wrappers.

func Debugf(format string, args ...any) { Get().Debugf(format, args...) }
func Infof(format string, args ...any)  { Get().Infof(format, args...) }
func Warnf(format string, args ...any)  { Get().Warnf(format, args...) }
func Errorf(format string, args ...any) { Get().Errorf(format, args...) }

// WithFields returns a structured entry tied to the singleton logger.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Get().WithFields(fields)
}
