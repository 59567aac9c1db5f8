package postgres

import (
	"fmt"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oniti/migrations/internal/database"
	"github.com/pkg/errors"
)

const (
	DriverName = "pgx"

	undefinedTable  = "42P01"
	uniqueViolation = "23505"
)

type Dialect struct {
	migrationsTable string
}

var _ database.Dialect = (*Dialect)(nil)

func NewDialect(migrationsTable string) *Dialect {
	return &Dialect{migrationsTable: migrationsTable}
}

func (d Dialect) DriverName() string {
	return DriverName
}

func (d Dialect) ProbeQuery() string {
	return fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", d.migrationsTable)
}

func (d Dialect) CreateQuery() string {
	const createSQL = `
		CREATE TABLE %s (
			id SERIAL PRIMARY KEY,
			file VARCHAR(255) NOT NULL,
			step INTEGER NOT NULL,
			UNIQUE (file)
		)
	`

	return fmt.Sprintf(createSQL, d.migrationsTable)
}

func (d Dialect) DropQuery() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.migrationsTable)
}

func (d Dialect) IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}

	return false
}

func (d Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
