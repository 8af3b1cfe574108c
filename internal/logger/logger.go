// Package logger provides process-wide logging for the Sercha ingest engine.
// Messages go through a shared logrus logger; verbose mode enables debug
// output. Structured fields are attached with WithFields.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields are structured key/value pairs attached to a log entry.
type Fields = logrus.Fields

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// FileConfig configures rotating file output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu      sync.RWMutex
	verbose bool
	base    = newBase()
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetFormat switches between text and JSON encoding.
func SetFormat(f Format) {
	if f == FormatJSON {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetFile mirrors log output to a rotating file.
// The returned closer flushes and closes the file.
func SetFile(cfg FileConfig, alsoStderr bool) io.Closer {
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	if alsoStderr {
		base.SetOutput(io.MultiWriter(os.Stderr, rotator))
	} else {
		base.SetOutput(rotator)
	}
	return rotator
}

// AddHook registers a logrus hook. Tests use it to capture entries.
func AddHook(h logrus.Hook) {
	base.AddHook(h)
}

// Logger returns the underlying logrus logger.
func Logger() *logrus.Logger {
	return base
}

// Entry is a log entry carrying structured fields.
type Entry struct {
	e *logrus.Entry
}

// WithFields returns an entry that attaches fields to every message.
func WithFields(f Fields) *Entry {
	return &Entry{e: base.WithFields(f)}
}

// WithFields adds more fields to the entry.
func (en *Entry) WithFields(f Fields) *Entry {
	return &Entry{e: en.e.WithFields(f)}
}

// WithError attaches err under the "error" key.
func (en *Entry) WithError(err error) *Entry {
	return &Entry{e: en.e.WithError(err)}
}

func (en *Entry) Debug(format string, args ...any) { en.e.Debugf(format, args...) }
func (en *Entry) Info(format string, args ...any)  { en.e.Infof(format, args...) }
func (en *Entry) Warn(format string, args ...any)  { en.e.Warnf(format, args...) }
func (en *Entry) Error(format string, args ...any) { en.e.Errorf(format, args...) }

// Debug logs a message when verbose mode is enabled.
func Debug(format string, args ...any) {
	base.Debugf(format, args...)
}

// Section logs a section header when verbose mode is enabled.
func Section(name string) {
	base.Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	base.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	base.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	base.Errorf(format, args...)
}
