package main

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// consoleLogger adapts zerolog to the engine Logger.
type consoleLogger struct {
	debug atomic.Bool
	log   zerolog.Logger
}

func newConsoleLogger(out io.Writer, component string, debug bool) *consoleLogger {
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	l := &consoleLogger{
		log: zerolog.New(w).With().Timestamp().Str("component", component).Logger(),
	}
	l.debug.Store(debug)
	return l
}

func (l *consoleLogger) DebugEnabled() bool    { return l.debug.Load() }
func (l *consoleLogger) SetDebug(enabled bool) { l.debug.Store(enabled) }

func (l *consoleLogger) Debugf(format string, args ...any) {
	if l.debug.Load() {
		l.log.Debug().Msgf(format, args...)
	}
}

func (l *consoleLogger) Infof(format string, args ...any)  { l.log.Info().Msgf(format, args...) }
func (l *consoleLogger) Warnf(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l *consoleLogger) Errorf(format string, args ...any) { l.log.Error().Msgf(format, args...) }
