package database

import (
	"context"
	"github.com/jmoiron/sqlx"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"regexp"
)

var (
	ErrConnection         = errors.New("could not connect to the database")
	ErrDuplicateMigration = errors.New("migration has already been recorded")
	ErrSchemaProvision    = errors.New("could not provision the migrations table")
	ErrInvalidStep        = errors.New("step must be a positive number")
	ErrInvalidTableName   = errors.New("invalid migrations table name")
)

const (
	DefaultMigrationsTable = "migrations"

	OperationRollback = "rollback"
	OperationMigrate  = "migrate"
)

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

type (
	// Record is a row of the migrations table
	Record struct {
		ID   int64  `db:"id"`
		File string `db:"file"`
		Step int    `db:"step"`
	}

	// Batch describes what a single migrate or rollback call did,
	// Files are listed in execution order
	Batch struct {
		Operation string
		Step      int
		Files     []string
	}

	Status struct {
		Applied []Record
		Pending []string
		MaxStep int
	}

	SchemaState int

	// Registry is what the engine needs from a migration source
	Registry interface {
		Load(ctx context.Context) error
		ListAvailable() []string
		Resolve(files []string, exclude []string) (migration.Descriptors, error)
	}

	// Executor is satisfied by both *sqlx.Conn and *sqlx.Tx
	Executor interface {
		sqlx.ExecerContext
		sqlx.QueryerContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		Rebind(query string) string
	}

	// Dialect knows the SQL of the migrations table for one driver
	// and how that driver reports the conditions the engine cares about
	Dialect interface {
		DriverName() string
		ProbeQuery() string
		CreateQuery() string
		DropQuery() string
		IsUndefinedTable(err error) bool
		IsUniqueViolation(err error) bool
	}
)

const (
	SchemaUnknown SchemaState = iota
	SchemaPresent
	SchemaAbsent
)

func (s SchemaState) String() string {
	switch s {
	case SchemaPresent:
		return "present"
	case SchemaAbsent:
		return "absent"
	default:
		return "unknown"
	}
}

// ValidateTableName guards the table name which is interpolated into queries
func ValidateTableName(name string) error {
	if !tableNameRegexp.MatchString(name) {
		return errors.Wrapf(ErrInvalidTableName, "%q", name)
	}

	return nil
}

func (b Batch) Empty() bool {
	return len(b.Files) == 0
}
