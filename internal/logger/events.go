package logger

import (
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
)

// EventLogger turns engine events into console feedback
type EventLogger struct {
	lg Logger
}

var _ database.Observer = (*EventLogger)(nil)

func NewEventLogger(lg Logger) *EventLogger {
	return &EventLogger{lg: lg}
}

func (el *EventLogger) Notify(e database.Event) {
	switch e.Kind {
	case database.UnitStarted:
		if e.Direction == migration.Down {
			el.lg.Infof("rolling back %s (step %d)...", e.File, e.Step)
		} else {
			el.lg.Infof("migrating %s (step %d)...", e.File, e.Step)
		}
	case database.UnitSucceeded:
		if e.Direction == migration.Down {
			el.lg.Successf("rolled back %s", e.File)
		} else {
			el.lg.Successf("migrated %s", e.File)
		}
	case database.UnitFailed:
		el.lg.Error(errors.Wrapf(e.Err, "%s of %s failed", e.Direction, e.File))
	case database.UnitSkipped:
		el.lg.Debugf("%s of step %d has no source anymore, skipped", e.File, e.Step)
	case database.SchemaCreated:
		el.lg.Successf("table %s created", e.Table)
	case database.BatchCommitted:
		el.lg.Successf("%s of step %d committed, %d migration(s)", e.Operation, e.Step, e.Count)
	case database.BatchRolledBack:
		if e.Err != nil {
			el.lg.Error(errors.Wrapf(e.Err, "%s of step %d rolled back", e.Operation, e.Step))
		} else {
			el.lg.Error(errors.Errorf("%s of step %d rolled back", e.Operation, e.Step))
		}
	}
}
