package database

import (
	"fmt"
	"github.com/oniti/migrations/migration"
)

// UnitExecutionError is returned when the up or down script of a unit fails.
// The driver error is kept as is and reachable through Cause and Unwrap.
type UnitExecutionError struct {
	File      string
	Direction migration.Direction
	Err       error
}

func (e *UnitExecutionError) Error() string {
	return fmt.Sprintf("could not run %s of migration [%s]: %s", e.Direction, e.File, e.Err.Error())
}

func (e *UnitExecutionError) Cause() error {
	return e.Err
}

func (e *UnitExecutionError) Unwrap() error {
	return e.Err
}
