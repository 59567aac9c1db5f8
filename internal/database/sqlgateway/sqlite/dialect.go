package sqlite

import (
	"fmt"
	"github.com/mattn/go-sqlite3"
	"github.com/oniti/migrations/internal/database"
	"github.com/pkg/errors"
	"strings"
)

const DriverName = "sqlite3"

type Dialect struct {
	migrationsTable string
}

func NewDialect(migrationsTable string) *Dialect {
	return &Dialect{migrationsTable: migrationsTable}
}

var _ database.Dialect = (*Dialect)(nil)

func (d Dialect) DriverName() string {
	return DriverName
}

func (d Dialect) ProbeQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", d.migrationsTable)
}

func (d Dialect) CreateQuery() string {
	const sqliteCreateMigrationsSchema = `
		CREATE TABLE %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file VARCHAR(255) NOT NULL,
			step INTEGER NOT NULL,
			UNIQUE (file)
		);
	`

	return fmt.Sprintf(sqliteCreateMigrationsSchema, d.migrationsTable)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", d.migrationsTable)
}

// IsUndefinedTable - sqlite reports a missing table as a generic error,
// only the message tells it apart
func (d Dialect) IsUndefinedTable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrError &&
			strings.Contains(sqliteErr.Error(), "no such table")
	}

	return false
}

func (d Dialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
