package sqlgateway

import (
	"context"
	"github.com/jmoiron/sqlx"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/database/sqlgateway/mysql"
	"github.com/oniti/migrations/internal/database/sqlgateway/postgres"
	"github.com/oniti/migrations/internal/database/sqlgateway/sqlite"
	"github.com/oniti/migrations/internal/logger"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
)

// SQLGateway is the migration engine: it reads the state, resolves the
// pending or eligible units and runs them inside a single transaction
type SQLGateway struct {
	connector SQLConnector
	dialect   database.Dialect
	store     *StateStore
	table     string
	lg        logger.Logger
	observer  database.Observer
}

// NewMySQLGateway - creates a new gateway for a MySQL database
func NewMySQLGateway(connector SQLConnector, migrationsTable, charset string) (*SQLGateway, error) {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	return newGateway(connector, mysql.NewDialect(migrationsTable, charset), migrationsTable)
}

// NewPostgresGateway - creates a new gateway for a PostgreSQL database
func NewPostgresGateway(connector SQLConnector, migrationsTable string) (*SQLGateway, error) {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	return newGateway(connector, postgres.NewDialect(migrationsTable), migrationsTable)
}

// NewSqliteGateway - creates a new gateway for a SQLite database
func NewSqliteGateway(connector SQLConnector, migrationsTable string) (*SQLGateway, error) {
	if migrationsTable == "" {
		migrationsTable = database.DefaultMigrationsTable
	}

	return newGateway(connector, sqlite.NewDialect(migrationsTable), migrationsTable)
}

func newGateway(connector SQLConnector, dialect database.Dialect, table string) (*SQLGateway, error) {
	if err := database.ValidateTableName(table); err != nil {
		return nil, err
	}

	lg := &logger.NullLogger{}

	return &SQLGateway{
		connector: connector,
		dialect:   dialect,
		table:     table,
		lg:        lg,
		store:     NewStateStore(dialect, table, lg),
		observer:  database.NullObserver{},
	}, nil
}

func (g *SQLGateway) SetLogger(lg logger.Logger) {
	g.lg = lg
	g.store.lg = lg
}

func (g *SQLGateway) SetObserver(o database.Observer) {
	if o == nil {
		o = database.NullObserver{}
	}

	g.observer = o
}

// Migrate applies every discovered unit that is not recorded yet as one new step
func (g *SQLGateway) Migrate(ctx context.Context, reg database.Registry) (database.Batch, error) {
	batch := database.Batch{Operation: database.OperationMigrate}

	conn, err := g.prepare(ctx, reg)
	if err != nil {
		return batch, err
	}

	var applied []string
	err = NewTxManager(conn).InTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		maxStep, err := g.store.MaxStep(ctx, tx)
		if err != nil {
			return err
		}

		batch.Step = maxStep + 1

		alreadyApplied, err := g.store.AppliedBefore(ctx, tx, batch.Step)
		if err != nil {
			return err
		}

		pending, err := reg.Resolve(nil, alreadyApplied)
		if err != nil {
			return err
		}

		g.lg.Debugf("%d migration(s) pending for step %d", len(pending), batch.Step)

		for i := range pending {
			if err := g.migrateOne(ctx, tx, pending[i], batch.Step); err != nil {
				return err
			}

			applied = append(applied, pending[i].File)
		}

		return nil
	})

	return g.finish(batch, applied, err)
}

// Rollback reverts every unit recorded with a step greater or equal to the
// given one, the most recently recorded first. A nil step means the latest step.
func (g *SQLGateway) Rollback(ctx context.Context, reg database.Registry, step *int) (database.Batch, error) {
	batch := database.Batch{Operation: database.OperationRollback}

	if step != nil {
		if *step < 0 {
			return batch, errors.Wrapf(database.ErrInvalidStep, "got %d", *step)
		}

		batch.Step = *step
	}

	conn, err := g.prepare(ctx, reg)
	if err != nil {
		return batch, err
	}

	var reverted []string
	err = NewTxManager(conn).InTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if step == nil {
			maxStep, err := g.store.MaxStep(ctx, tx)
			if err != nil {
				return err
			}

			batch.Step = maxStep
		}

		files, err := g.store.AppliedAtOrAfter(ctx, tx, batch.Step)
		if err != nil {
			return err
		}

		if len(files) == 0 {
			g.lg.Debugf("nothing recorded at step %d or later", batch.Step)
			return nil
		}

		descriptors, err := reg.Resolve(files, nil)
		if err != nil {
			return err
		}

		byFile := make(map[string]migration.Descriptor, len(descriptors))
		for i := range descriptors {
			byFile[descriptors[i].File] = descriptors[i]
		}

		for _, file := range files {
			d, ok := byFile[file]
			if !ok {
				g.observer.Notify(database.Event{
					Kind:      database.UnitSkipped,
					Operation: database.OperationRollback,
					Direction: migration.Down,
					File:      file,
					Step:      batch.Step,
				})
				continue
			}

			if err := g.rollbackOne(ctx, tx, d, batch.Step); err != nil {
				return err
			}

			reverted = append(reverted, file)
		}

		return nil
	})

	return g.finish(batch, reverted, err)
}

// Status reports the recorded migrations and the ones still pending,
// the migrations table is not created when missing
func (g *SQLGateway) Status(ctx context.Context, reg database.Registry) (database.Status, error) {
	var status database.Status

	if err := reg.Load(ctx); err != nil {
		return status, err
	}

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return status, err
	}

	state, err := g.store.Probe(ctx, conn)
	if err != nil {
		return status, err
	}

	if state == database.SchemaAbsent {
		status.Pending = reg.ListAvailable()
		return status, nil
	}

	records, err := g.ReadRecords(ctx)
	if err != nil {
		return status, err
	}

	applied := make([]string, 0, len(records))
	for i := range records {
		applied = append(applied, records[i].File)
		if records[i].Step > status.MaxStep {
			status.MaxStep = records[i].Step
		}
	}

	pending, err := reg.Resolve(nil, applied)
	if err != nil {
		return status, err
	}

	status.Applied = records
	status.Pending = pending.Files()

	return status, nil
}

func (g *SQLGateway) DropMigrationsTable(ctx context.Context) error {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return err
	}

	return g.store.Drop(ctx, conn)
}

// ReadRecords lists every row of the migrations table in insertion order
func (g *SQLGateway) ReadRecords(ctx context.Context) ([]database.Record, error) {
	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return g.store.Records(ctx, conn)
}

func (g *SQLGateway) Close() error {
	return g.connector.Close()
}

// prepare loads the registry before anything touches the database so an
// invalid unit aborts the run before a transaction is opened
func (g *SQLGateway) prepare(ctx context.Context, reg database.Registry) (*sqlx.Conn, error) {
	if err := reg.Load(ctx); err != nil {
		g.lg.Error(err)
		return nil, err
	}

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		g.lg.Error(err)
		return nil, err
	}

	if err := g.ensureSchema(ctx, conn); err != nil {
		g.lg.Error(err)
		return nil, err
	}

	return conn, nil
}

func (g *SQLGateway) ensureSchema(ctx context.Context, ex database.Executor) error {
	created, err := g.store.EnsureSchema(ctx, ex)
	if err != nil {
		return err
	}

	if created {
		g.observer.Notify(database.Event{Kind: database.SchemaCreated, Table: g.table})
	}

	return nil
}

func (g *SQLGateway) finish(batch database.Batch, processed []string, err error) (database.Batch, error) {
	if err != nil {
		g.observer.Notify(database.Event{
			Kind:      database.BatchRolledBack,
			Operation: batch.Operation,
			Step:      batch.Step,
			Err:       err,
		})

		return batch, err
	}

	batch.Files = processed

	g.observer.Notify(database.Event{
		Kind:      database.BatchCommitted,
		Operation: batch.Operation,
		Step:      batch.Step,
		Count:     len(processed),
	})

	return batch, nil
}

func (g *SQLGateway) migrateOne(ctx context.Context, tx *sqlx.Tx, d migration.Descriptor, step int) error {
	if err := g.run(ctx, tx, d, migration.Up, step, d.Unit.Up()); err != nil {
		return err
	}

	if err := g.store.Record(ctx, tx, d.File, step); err != nil {
		g.notifyFailure(d, migration.Up, step, err)
		return err
	}

	g.observer.Notify(database.Event{
		Kind:      database.UnitSucceeded,
		Operation: database.OperationMigrate,
		Direction: migration.Up,
		File:      d.File,
		Step:      step,
	})

	return nil
}

func (g *SQLGateway) rollbackOne(ctx context.Context, tx *sqlx.Tx, d migration.Descriptor, step int) error {
	if err := g.run(ctx, tx, d, migration.Down, step, d.Unit.Down()); err != nil {
		return err
	}

	if err := g.store.Remove(ctx, tx, d.File); err != nil {
		g.notifyFailure(d, migration.Down, step, err)
		return err
	}

	g.observer.Notify(database.Event{
		Kind:      database.UnitSucceeded,
		Operation: database.OperationRollback,
		Direction: migration.Down,
		File:      d.File,
		Step:      step,
	})

	return nil
}

func (g *SQLGateway) run(
	ctx context.Context,
	tx *sqlx.Tx,
	d migration.Descriptor,
	direction migration.Direction,
	step int,
	script migration.Script,
) error {
	g.observer.Notify(database.Event{
		Kind:      database.UnitStarted,
		Operation: operationOf(direction),
		Direction: direction,
		File:      d.File,
		Step:      step,
	})

	for _, statement := range script {
		g.lg.SQL(statement)
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			uErr := &database.UnitExecutionError{File: d.File, Direction: direction, Err: err}
			g.notifyFailure(d, direction, step, uErr)
			return uErr
		}
	}

	return nil
}

func (g *SQLGateway) notifyFailure(d migration.Descriptor, direction migration.Direction, step int, err error) {
	g.observer.Notify(database.Event{
		Kind:      database.UnitFailed,
		Operation: operationOf(direction),
		Direction: direction,
		File:      d.File,
		Step:      step,
		Err:       err,
	})
}

func operationOf(direction migration.Direction) string {
	if direction == migration.Down {
		return database.OperationRollback
	}

	return database.OperationMigrate
}
