package migrations

import (
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/database/sqlgateway"
	"github.com/oniti/migrations/internal/database/sqlgateway/mysql"
	"github.com/oniti/migrations/internal/database/sqlgateway/postgres"
	"github.com/oniti/migrations/internal/database/sqlgateway/sqlite"
	"time"
)

type (
	dbConfig struct {
		migrationsTable string
		charset         string
	}

	DBOptionFunc func(*dbConfig, *sqlgateway.ConnectOptions)
)

// UseMySQL - multi statement scripts need multiStatements=true in the DSN
func UseMySQL(db *sql.DB, options ...DBOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		cfg, connectOpts := configure(options)
		connector := sqlgateway.MakeRetryingConnector(sqlx.NewDb(db, mysql.DriverName), connectOpts)

		gw, err := sqlgateway.NewMySQLGateway(connector, cfg.migrationsTable, cfg.charset)
		if err != nil {
			return err
		}

		m.use(gw)

		return nil
	}
}

func UsePostgres(db *sql.DB, options ...DBOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		cfg, connectOpts := configure(options)
		connector := sqlgateway.MakeRetryingConnector(sqlx.NewDb(db, postgres.DriverName), connectOpts)

		gw, err := sqlgateway.NewPostgresGateway(connector, cfg.migrationsTable)
		if err != nil {
			return err
		}

		m.use(gw)

		return nil
	}
}

func UseSqlite(db *sql.DB, options ...DBOptionFunc) OptionFunc {
	return func(m *Migrator) error {
		cfg, connectOpts := configure(options)
		connector := sqlgateway.MakeRetryingConnector(sqlx.NewDb(db, sqlite.DriverName), connectOpts)

		gw, err := sqlgateway.NewSqliteGateway(connector, cfg.migrationsTable)
		if err != nil {
			return err
		}

		m.use(gw)

		return nil
	}
}

func WithMigrationsTable(migrationsTable string) DBOptionFunc {
	return func(cfg *dbConfig, connectOpts *sqlgateway.ConnectOptions) {
		cfg.migrationsTable = migrationsTable
	}
}

// WithMySQLCharset is the charset of the migrations table, utf8mb4 by default
func WithMySQLCharset(charset string) DBOptionFunc {
	return func(cfg *dbConfig, connectOpts *sqlgateway.ConnectOptions) {
		cfg.charset = charset
	}
}

func WithConnectionAttempts(attempts int) DBOptionFunc {
	return func(cfg *dbConfig, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxAttempts = attempts
	}
}

func WithConnectionTimeout(timeout time.Duration) DBOptionFunc {
	return func(cfg *dbConfig, connectOpts *sqlgateway.ConnectOptions) {
		connectOpts.MaxTimeout = timeout
	}
}

func configure(options []DBOptionFunc) (*dbConfig, *sqlgateway.ConnectOptions) {
	cfg := &dbConfig{migrationsTable: database.DefaultMigrationsTable}
	connectOpts := sqlgateway.NewDefaultConnectOptions()

	for _, oFunc := range options {
		oFunc(cfg, connectOpts)
	}

	return cfg, connectOpts
}

func (m *Migrator) use(gw gateway) {
	if m.gateway != nil {
		_ = m.gateway.Close()
	}

	m.gateway = gw
	m.closerFns = append(m.closerFns, gw.Close)
}
