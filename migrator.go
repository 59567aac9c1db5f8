package migrations

import (
	"context"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/logger"
	"github.com/oniti/migrations/internal/source"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"time"
)

type (
	CloserFunc func() error

	// Batch is the outcome of a migrate or rollback call
	Batch = database.Batch

	// Status lists the recorded migrations and the ones still pending
	Status = database.Status

	Record = database.Record
	Event  = database.Event

	Observer     = database.Observer
	ObserverFunc = database.ObserverFunc

	gateway interface {
		Migrate(ctx context.Context, reg database.Registry) (database.Batch, error)
		Rollback(ctx context.Context, reg database.Registry, step *int) (database.Batch, error)
		Status(ctx context.Context, reg database.Registry) (database.Status, error)
		SetLogger(lg logger.Logger)
		SetObserver(o database.Observer)
		Close() error
	}

	sourceBuilder func(lg logger.Logger) (source.Source, error)
)

type Migrator struct {
	lg        logger.Logger
	gateway   gateway
	source    source.Source
	newSource sourceBuilder
	table     *migration.Table
	observers database.Observers
	closerFns []CloserFunc
}

// NewMigrator creates a migrator out of option callbacks, a database
// option is required. When no source is given the migrations are read from
// the ./migrations folder of the working directory.
func NewMigrator(opts ...OptionFunc) (*Migrator, CloserFunc, error) {
	m := new(Migrator)
	m.lg = &logger.NullLogger{}
	m.table = migration.DefaultTable

	for _, oFunc := range opts {
		if err := oFunc(m); err != nil {
			_ = m.close()
			return nil, nil, err
		}
	}

	if m.gateway == nil {
		_ = m.close()
		return nil, nil, ErrGatewayNotInitialized
	}

	if m.newSource == nil {
		m.newSource = func(lg logger.Logger) (source.Source, error) {
			return source.NewLocalFolder(osfs.New(), source.DefaultMigrationsFolder, m.table, lg), nil
		}
	}

	src, err := m.newSource(m.lg)
	if err != nil {
		_ = m.close()
		return nil, nil, err
	}

	m.source = src

	m.gateway.SetLogger(m.lg)
	m.gateway.SetObserver(append(database.Observers{logger.NewEventLogger(m.lg)}, m.observers...))

	return m, m.close, nil
}

// Migrate applies every pending migration as a single new step.
// A failed script comes back as *UnitExecutionError.
func (m *Migrator) Migrate(ctx context.Context) (Batch, error) {
	if m.source == nil {
		return Batch{}, ErrSourceNotInitialized
	}

	batch, err := m.gateway.Migrate(ctx, m.source)
	if err != nil {
		return batch, err
	}

	if batch.Empty() {
		m.lg.Infof("nothing to migrate")
	}

	return batch, nil
}

// Rollback reverts the latest step, or with WithStep every step
// starting with the given one
func (m *Migrator) Rollback(ctx context.Context, cfs ...ActionConfigurator) (Batch, error) {
	if m.source == nil {
		return Batch{}, ErrSourceNotInitialized
	}

	act := new(action)
	for _, f := range cfs {
		f(act)
	}

	batch, err := m.gateway.Rollback(ctx, m.source, act.step)
	if err != nil {
		return batch, err
	}

	if batch.Empty() {
		m.lg.Infof("nothing to roll back")
	}

	return batch, nil
}

func (m *Migrator) Status(ctx context.Context) (Status, error) {
	if m.source == nil {
		return Status{}, ErrSourceNotInitialized
	}

	status, err := m.gateway.Status(ctx, m.source)
	if err != nil {
		m.lg.Error(err)
		return status, errors.Wrap(err, "could not read migrations status")
	}

	return status, nil
}

// Create writes a new migration stub into the source
func (m *Migrator) Create(name string) (string, error) {
	if m.source == nil {
		return "", ErrSourceNotInitialized
	}

	return m.source.Create(name, time.Now())
}

// Source - returns the migration source the migrator reads from
func (m *Migrator) Source() source.Source {
	return m.source
}

func (m *Migrator) close() error {
	var result error
	for i := len(m.closerFns) - 1; i >= 0; i-- {
		if err := m.closerFns[i](); err != nil {
			m.lg.Error(err)
			if result == nil {
				result = err
			}
		}
	}

	m.closerFns = nil

	return result
}
