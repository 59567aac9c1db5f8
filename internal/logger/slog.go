package logger

import (
	"context"
	"fmt"
	"github.com/lmittmann/tint"
	"io"
	"log/slog"
	"time"
)

// LevelSuccess sits between info and warn so handlers can tell it apart
const LevelSuccess = slog.Level(2)

// SlogLogger writes the console feedback as structured records
type SlogLogger struct {
	lg    *slog.Logger
	debug bool
	sql   bool
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(lg *slog.Logger, sql, debug bool) *SlogLogger {
	return &SlogLogger{lg: lg, sql: sql, debug: debug}
}

// NewTintHandler builds the tint handler used by the CLI for structured output
func NewTintHandler(w io.Writer, noColor, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    noColor,
		TimeFormat: time.DateTime,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey || len(groups) != 0 {
				return a
			}

			lvl, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}

			switch {
			case lvl < slog.LevelInfo:
				return slog.String(slog.LevelKey, "DBG")
			case lvl < LevelSuccess:
				return slog.String(slog.LevelKey, "INF")
			case lvl < slog.LevelWarn:
				return slog.String(slog.LevelKey, "OK")
			case lvl < slog.LevelError:
				return slog.String(slog.LevelKey, "WRN")
			default:
				return slog.String(slog.LevelKey, "ERR")
			}
		},
	})
}

func (s *SlogLogger) Infof(format string, args ...interface{}) {
	s.lg.Info(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Successf(format string, args ...interface{}) {
	s.lg.Log(context.Background(), LevelSuccess, fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Debugf(format string, args ...interface{}) {
	if s.debug {
		s.lg.Debug(fmt.Sprintf(format, args...))
	}
}

func (s *SlogLogger) Error(err error) {
	s.lg.Error("migrations failed", tint.Err(err))
}

func (s *SlogLogger) SQL(query string, args ...interface{}) {
	if s.sql {
		s.lg.Debug("running sql", "query", query, "args", args)
	}
}
