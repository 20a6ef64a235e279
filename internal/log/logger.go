// Package log provides the leveled structured logger used by the esym CLI
// and build pipeline.
package log

import (
	"io"
	"os"
	"sync"

	charmlog "github.com/charmbracelet/log"
)

// Level represents log severity levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) charm() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// Logger interface defines structured logging methods. Arguments after the
// message are alternating keys and values.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	SetLevel(level Level)
	SetJSONOutput(enabled bool)
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level      Level
	JSONOutput bool
	Timestamps bool
	Output     io.Writer
}

// DefaultLogger is the default implementation of Logger
type DefaultLogger struct {
	mu     sync.Mutex
	level  Level
	logger *charmlog.Logger
}

var (
	defaultLogger *DefaultLogger
	once          sync.Once
)

// New creates a new logger with the given configuration
func New(cfg LoggerConfig) *DefaultLogger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	l := &DefaultLogger{
		level: cfg.Level,
		logger: charmlog.NewWithOptions(out, charmlog.Options{
			Level:           cfg.Level.charm(),
			ReportTimestamp: cfg.Timestamps,
			TimeFormat:      "15:04:05",
		}),
	}
	l.SetJSONOutput(cfg.JSONOutput)
	return l
}

// Default returns the default logger instance
func Default() *DefaultLogger {
	once.Do(func() {
		defaultLogger = New(LoggerConfig{Level: InfoLevel})
	})
	return defaultLogger
}

// Setup configures the default logger for the CLI: debug level with
// timestamps when verbose, info level otherwise.
func Setup(verbose bool) *DefaultLogger {
	l := Default()
	if verbose {
		l.SetLevel(DebugLevel)
		l.logger.SetReportTimestamp(true)
	} else {
		l.SetLevel(InfoLevel)
		l.logger.SetReportTimestamp(false)
	}
	return l
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}

// Level returns the minimum level that is logged.
func (l *DefaultLogger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.logger.SetLevel(level.charm())
}

// SetJSONOutput enables or disables JSON output
func (l *DefaultLogger) SetJSONOutput(enabled bool) {
	if enabled {
		l.logger.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.logger.SetFormatter(charmlog.TextFormatter)
	}
}

// With returns a logger that adds keyvals to every entry.
func (l *DefaultLogger) With(keyvals ...interface{}) *DefaultLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &DefaultLogger{level: l.level, logger: l.logger.With(keyvals...)}
}

// Nop is a Logger that discards everything.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
func (Nop) SetLevel(Level)               {}
func (Nop) SetJSONOutput(bool)           {}
