package migrations

import (
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/logger"
	"log/slog"
)

type OptionFunc func(*Migrator) error
type ActionConfigurator func(a *action)

// action.step stays nil unless WithStep was given, rollback then
// reverts the latest step only
type action struct {
	step *int
}

// WithStep makes rollback revert every step greater or equal to the given one,
// WithStep(0) reverts everything
func WithStep(step int) ActionConfigurator {
	return func(a *action) {
		a.step = &step
	}
}

func UseColorLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewColorLogger(p, printSql, printDebug)
		return nil
	}
}

func UseLogger(p logger.Printer, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewBWLogger(p, printSql, printDebug)
		return nil
	}
}

func UseStructuredLogger(lg *slog.Logger, printSql, printDebug bool) OptionFunc {
	return func(m *Migrator) error {
		m.lg = logger.NewSlogLogger(lg, printSql, printDebug)
		return nil
	}
}

// WithObserver receives every migration event next to the console feedback
func WithObserver(o database.Observer) OptionFunc {
	return func(m *Migrator) error {
		if o != nil {
			m.observers = append(m.observers, o)
		}
		return nil
	}
}
