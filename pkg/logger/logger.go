// Package logger provides the zerolog logger used across the service.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates the service logger. Development gets colored console output
// at debug level, other environments JSON at info level.
func New(serviceName string, environment string) *Logger {
	if environment == "development" {
		l := NewWithWriter(serviceName, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		return &Logger{Logger: l.Level(zerolog.DebugLevel)}
	}
	l := NewWithWriter(serviceName, os.Stdout)
	return &Logger{Logger: l.Level(zerolog.InfoLevel)}
}

// NewWithWriter creates a logger that writes JSON lines to w
func NewWithWriter(serviceName string, w io.Writer) *Logger {
	return &Logger{Logger: zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// With returns a child logger carrying key=value on every line
func (l *Logger) With(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With().Str(key, value).Logger()}
}

func (l *Logger) WithRequestID(requestID string) *Logger { return l.With("request_id", requestID) }

func (l *Logger) WithDraftID(draftID string) *Logger { return l.With("draft_id", draftID) }

func (l *Logger) WithComponent(component string) *Logger { return l.With("component", component) }
