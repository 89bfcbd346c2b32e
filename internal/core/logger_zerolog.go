package core

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface. Arguments
// are interpreted as alternating key-value pairs; a dangling value is emitted
// under the "extra" key.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger builds a structured logger writing to w.
func NewZerologLogger(w io.Writer) *ZerologLogger {
	return &ZerologLogger{log: zerolog.New(w).With().Timestamp().Logger()}
}

// WrapZerolog adapts an existing zerolog.Logger.
func WrapZerolog(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

func (l *ZerologLogger) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = ev.Interface("extra", args[len(args)-1])
	}
	ev.Msg(msg)
}

// Debug implements Logger.
func (l *ZerologLogger) Debug(msg string, args ...any) { l.emit(l.log.Debug(), msg, args) }

// Info implements Logger.
func (l *ZerologLogger) Info(msg string, args ...any) { l.emit(l.log.Info(), msg, args) }

// Warn implements Logger.
func (l *ZerologLogger) Warn(msg string, args ...any) { l.emit(l.log.Warn(), msg, args) }

// Error implements Logger.
func (l *ZerologLogger) Error(msg string, args ...any) { l.emit(l.log.Error(), msg, args) }

var _ Logger = (*ZerologLogger)(nil)
