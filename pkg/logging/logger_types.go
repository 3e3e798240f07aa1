package logging

import (
	"io"
	"strings"
	"sync"
	"time"
)

// Level orders log messages by importance.
type Level int

const (
	// DebugLevel reports every optimizer pass and move count.
	DebugLevel Level = iota
	// InfoLevel reports run and trial progress.
	InfoLevel
	// WarnLevel reports degenerate input and flow that did not converge.
	WarnLevel
	// ErrorLevel reports failed runs.
	ErrorLevel
)

var levelNames = [...]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l Level) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// LevelForVerbosity maps an engine verbosity onto a log level:
// 0 logs warnings only, 1 adds progress, 2 and above log every pass.
func LevelForVerbosity(verbosity int) Level {
	switch {
	case verbosity <= 0:
		return WarnLevel
	case verbosity == 1:
		return InfoLevel
	default:
		return DebugLevel
	}
}

// ParseLevel converts a level name, in any case, to a Level. Unknown names
// give InfoLevel.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return WarnLevel
	}
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(l)
		}
	}
	return InfoLevel
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logger used by the engine and the CLI.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger that adds fields to every message.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
	// Enabled reports whether messages at level are written.
	Enabled(level Level) bool
}

// JSONLogger writes one JSON object per message.
type JSONLogger struct {
	writer io.Writer
	level  Level
	fields []Field
	mu     sync.Mutex
}

// LogEntry is the JSON form of one message.
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything. Tests use it to keep output quiet.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level)         {}
func (NopLogger) GetLevel() Level        { return ErrorLevel }
func (NopLogger) Enabled(Level) bool     { return false }

func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs the duration of an operation when it ends.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
