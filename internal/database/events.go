package database

import (
	"fmt"
	"github.com/oniti/migrations/migration"
)

type EventKind int

const (
	UnitStarted EventKind = iota + 1
	UnitSucceeded
	UnitFailed
	UnitSkipped
	BatchCommitted
	BatchRolledBack
	SchemaCreated
)

func (k EventKind) String() string {
	switch k {
	case UnitStarted:
		return "unit-started"
	case UnitSucceeded:
		return "unit-succeeded"
	case UnitFailed:
		return "unit-failed"
	case UnitSkipped:
		return "unit-skipped"
	case BatchCommitted:
		return "batch-committed"
	case BatchRolledBack:
		return "batch-rolled-back"
	case SchemaCreated:
		return "schema-created"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type Event struct {
	Kind      EventKind
	Operation string
	Direction migration.Direction
	File      string
	Step      int
	Count     int
	Table     string
	Err       error
}

type Observer interface {
	Notify(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) Notify(e Event) {
	f(e)
}

type NullObserver struct{}

func (NullObserver) Notify(Event) {}

// Observers fans an event out to every observer in order
type Observers []Observer

func (o Observers) Notify(e Event) {
	for i := range o {
		if o[i] != nil {
			o[i].Notify(e)
		}
	}
}
