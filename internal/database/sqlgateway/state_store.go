package sqlgateway

import (
	"context"
	"fmt"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/logger"
	"github.com/pkg/errors"
)

// StateStore reads and writes the migrations table. It never opens
// transactions itself, the executor it is given decides that.
type StateStore struct {
	dialect database.Dialect
	table   string
	lg      logger.Logger
}

func NewStateStore(dialect database.Dialect, table string, lg logger.Logger) *StateStore {
	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &StateStore{dialect: dialect, table: table, lg: lg}
}

// Probe tells whether the migrations table exists. Only the driver's
// "undefined table" condition means absent, anything else is an error.
func (s *StateStore) Probe(ctx context.Context, ex database.Executor) (database.SchemaState, error) {
	q := s.dialect.ProbeQuery()
	s.lg.SQL(q)

	rows, err := ex.QueryContext(ctx, q)
	if err != nil {
		return s.probeFailed(err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.lg.Error(closeErr)
		}
	}()

	for rows.Next() {
	}

	// some drivers report the missing table only once rows are read
	if err := rows.Err(); err != nil {
		return s.probeFailed(err)
	}

	return database.SchemaPresent, nil
}

func (s *StateStore) probeFailed(err error) (database.SchemaState, error) {
	if s.dialect.IsUndefinedTable(err) {
		return database.SchemaAbsent, nil
	}

	return database.SchemaUnknown, errors.Wrapf(database.ErrSchemaProvision, "probe of [%s] failed: %s", s.table, err.Error())
}

// EnsureSchema creates the migrations table unless it is already there,
// created reports whether it had to
func (s *StateStore) EnsureSchema(ctx context.Context, ex database.Executor) (created bool, err error) {
	state, err := s.Probe(ctx, ex)
	if err != nil {
		return false, err
	}

	if state == database.SchemaPresent {
		return false, nil
	}

	q := s.dialect.CreateQuery()
	s.lg.SQL(q)

	if _, err := ex.ExecContext(ctx, q); err != nil {
		return false, errors.Wrapf(database.ErrSchemaProvision, "could not create [%s]: %s", s.table, err.Error())
	}

	return true, nil
}

func (s *StateStore) MaxStep(ctx context.Context, ex database.Executor) (int, error) {
	q := fmt.Sprintf("SELECT COALESCE(MAX(step), 0) FROM %s", s.table)
	s.lg.SQL(q)

	var step int
	if err := ex.GetContext(ctx, &step, q); err != nil {
		return 0, errors.Wrap(err, "could not read the current step")
	}

	return step, nil
}

// AppliedAtOrAfter lists files recorded with step >= the given one,
// the most recently recorded first
func (s *StateStore) AppliedAtOrAfter(ctx context.Context, ex database.Executor, step int) ([]string, error) {
	q := ex.Rebind(fmt.Sprintf("SELECT file FROM %s WHERE step >= ? ORDER BY id DESC", s.table))
	s.lg.SQL(q, step)

	var files []string
	if err := ex.SelectContext(ctx, &files, q, step); err != nil {
		return nil, errors.Wrapf(err, "could not read migrations of step %d and later", step)
	}

	return files, nil
}

// AppliedBefore lists files recorded with step < the given one
func (s *StateStore) AppliedBefore(ctx context.Context, ex database.Executor, step int) ([]string, error) {
	q := ex.Rebind(fmt.Sprintf("SELECT file FROM %s WHERE step < ? ORDER BY id ASC", s.table))
	s.lg.SQL(q, step)

	var files []string
	if err := ex.SelectContext(ctx, &files, q, step); err != nil {
		return nil, errors.Wrapf(err, "could not read migrations before step %d", step)
	}

	return files, nil
}

func (s *StateStore) Records(ctx context.Context, ex database.Executor) ([]database.Record, error) {
	q := fmt.Sprintf("SELECT id, file, step FROM %s ORDER BY id ASC", s.table)
	s.lg.SQL(q)

	var records []database.Record
	if err := ex.SelectContext(ctx, &records, q); err != nil {
		return nil, errors.Wrap(err, "could not read migration records")
	}

	return records, nil
}

func (s *StateStore) Record(ctx context.Context, ex database.Executor, file string, step int) error {
	q := ex.Rebind(fmt.Sprintf("INSERT INTO %s (file, step) VALUES (?, ?)", s.table))
	s.lg.SQL(q, file, step)

	if _, err := ex.ExecContext(ctx, q, file, step); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return errors.Wrapf(database.ErrDuplicateMigration, "%s", file)
		}

		return errors.Wrapf(err, "could not record migration [%s] of step %d", file, step)
	}

	return nil
}

func (s *StateStore) Remove(ctx context.Context, ex database.Executor, file string) error {
	q := ex.Rebind(fmt.Sprintf("DELETE FROM %s WHERE file = ?", s.table))
	s.lg.SQL(q, file)

	if _, err := ex.ExecContext(ctx, q, file); err != nil {
		return errors.Wrapf(err, "could not remove migration [%s]", file)
	}

	return nil
}

func (s *StateStore) Drop(ctx context.Context, ex database.Executor) error {
	q := s.dialect.DropQuery()
	s.lg.SQL(q)

	if _, err := ex.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "could not drop [%s]", s.table)
	}

	return nil
}
