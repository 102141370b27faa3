package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents the severity of a log message
type Level int

const (
	// LevelDebug for detailed diagnostics (per-chunk audio, option merges)
	LevelDebug Level = iota
	// LevelInfo for call lifecycle and provider activity
	LevelInfo
	// LevelWarn for degraded-but-continuing conditions
	LevelWarn
	// LevelError for failures
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var levelColors = map[Level]string{
	LevelDebug: "\033[36m", // cyan
	LevelInfo:  "\033[32m", // green
	LevelWarn:  "\033[33m", // yellow
	LevelError: "\033[31m", // red
}

// Logger is a leveled, optionally colored logger with a component prefix
type Logger struct {
	mu        sync.RWMutex
	level     Level
	colors    bool
	prefix    string
	stdLogger *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init configures the default logger from environment variables.
// LOG_LEVEL selects the minimum level (DEBUG, INFO, WARN, ERROR; default INFO).
// LOG_COLOR=false disables ANSI colors.
func Init() {
	once.Do(func() {
		level := LevelInfo
		switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
		case "DEBUG":
			level = LevelDebug
		case "WARN", "WARNING":
			level = LevelWarn
		case "ERROR":
			level = LevelError
		}

		colors := true
		if v := os.Getenv("LOG_COLOR"); v == "false" || v == "0" {
			colors = false
		}

		defaultLogger = New(level, os.Stdout, colors, "")
	})
}

// New creates a Logger writing to output
func New(level Level, output io.Writer, colors bool, prefix string) *Logger {
	return &Logger{
		level:     level,
		colors:    colors,
		prefix:    prefix,
		stdLogger: log.New(output, "", log.LstdFlags),
	}
}

// SetLevel changes the minimum level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Enabled reports whether the given level would be logged
func (l *Logger) Enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	name := levelNames[level]

	var line string
	switch {
	case l.colors && l.prefix != "":
		line = fmt.Sprintf("%s[%s]\033[0m %s %s", levelColors[level], name, l.prefix, msg)
	case l.colors:
		line = fmt.Sprintf("%s[%s]\033[0m %s", levelColors[level], name, msg)
	case l.prefix != "":
		line = fmt.Sprintf("[%s] %s %s", name, l.prefix, msg)
	default:
		line = fmt.Sprintf("[%s] %s", name, msg)
	}

	l.stdLogger.Output(2, line)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// WithPrefix derives a logger with a component prefix, e.g. "[AzureTTS]"
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		level:     l.level,
		colors:    l.colors,
		prefix:    prefix,
		stdLogger: l.stdLogger,
	}
}

// Default returns the process-wide logger, initializing it if needed
func Default() *Logger {
	if defaultLogger == nil {
		Init()
	}
	return defaultLogger
}

// WithPrefix derives a prefixed logger from the default logger
func WithPrefix(prefix string) *Logger {
	return Default().WithPrefix(prefix)
}
