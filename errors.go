package migrations

import (
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/source"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
)

var (
	ErrGatewayNotInitialized = errors.New("database gateway has not been initialized")
	ErrSourceNotInitialized  = errors.New("migration source has not been initialized")
)

var (
	ErrConnection              = database.ErrConnection
	ErrDuplicateMigration      = database.ErrDuplicateMigration
	ErrSchemaProvision         = database.ErrSchemaProvision
	ErrInvalidStep             = database.ErrInvalidStep
	ErrInvalidTableName        = database.ErrInvalidTableName
	ErrInvalidMigrationUnit    = migration.ErrInvalidMigrationUnit
	ErrMigrationsFolderInvalid = source.ErrMigrationsFolderInvalid
	ErrMigrationAlreadyExists  = source.ErrMigrationAlreadyExists
)

// UnitExecutionError is returned when a script of a migration fails,
// errors.Cause gives back the driver error
type UnitExecutionError = database.UnitExecutionError
