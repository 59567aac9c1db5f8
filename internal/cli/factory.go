package cli

import (
	"database/sql"
	"github.com/go-sql-driver/mysql"
	"github.com/oniti/migrations"
	"github.com/oniti/migrations/internal/database/sqlgateway/postgres"
	"github.com/oniti/migrations/internal/database/sqlgateway/sqlite"
	"github.com/oniti/migrations/internal/logger"
	"github.com/pkg/errors"
	"github.com/xo/dburl"
	"io"
	"log"
	"log/slog"
	"strings"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type (
	migratorFactory    func(cfg Config, opts []migrations.OptionFunc) (*migrations.Migrator, migrations.CloserFunc, error)
	migratorFactoryMap map[string]migratorFactory
)

var factories = migratorFactoryMap{
	"mysql":      createMySQLMigrator,
	"postgres":   createPostgresMigrator,
	"postgresql": createPostgresMigrator,
	"sqlite":     createSqliteMigrator,
	"sqlite3":    createSqliteMigrator,
}

func createMySQLMigrator(cfg Config, opts []migrations.OptionFunc) (*migrations.Migrator, migrations.CloserFunc, error) {
	dsn, err := mysqlDSN(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open mysql database")
	}

	return open(db, append(opts, migrations.UseMySQL(db, dbOptions(cfg)...)))
}

func createPostgresMigrator(cfg Config, opts []migrations.OptionFunc) (*migrations.Migrator, migrations.CloserFunc, error) {
	db, err := sql.Open(postgres.DriverName, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open postgres database")
	}

	return open(db, append(opts, migrations.UsePostgres(db, dbOptions(cfg)...)))
}

func createSqliteMigrator(cfg Config, opts []migrations.OptionFunc) (*migrations.Migrator, migrations.CloserFunc, error) {
	path := cfg.DatabaseURL
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		path = strings.TrimPrefix(path, prefix)
	}

	if path == "" {
		return nil, nil, errors.Wrap(ErrInvalidConfig, "sqlite database path is empty")
	}

	db, err := sql.Open(sqlite.DriverName, path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not open sqlite database")
	}

	return open(db, append(opts, migrations.UseSqlite(db, dbOptions(cfg)...)))
}

// createMigrator picks the driver by the scheme of the database url
func createMigrator(cfg Config, env *Env) (*migrations.Migrator, migrations.CloserFunc, error) {
	scheme, _, ok := strings.Cut(cfg.DatabaseURL, "://")
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnknownDriver, "no scheme in [%s]", redact(cfg.DatabaseURL))
	}

	return createMigratorFrom(strings.ToLower(scheme), factories, cfg, []migrations.OptionFunc{
		migrations.UseFileSystemSource(env.FS, cfg.MigrationsFolder),
		loggerOption(cfg, env.Stdout, env.NoColor),
	})
}

func createMigratorFrom(
	driver string,
	factoryMap migratorFactoryMap,
	cfg Config,
	opts []migrations.OptionFunc,
) (*migrations.Migrator, migrations.CloserFunc, error) {
	factory, ok := factoryMap[driver]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnknownDriver, "could not find factory for driver [%s]", driver)
	}

	return factory(cfg, opts)
}

func open(db *sql.DB, opts []migrations.OptionFunc) (*migrations.Migrator, migrations.CloserFunc, error) {
	m, closer, err := migrations.NewMigrator(opts...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return m, func() error {
		closeErr := closer()
		if err := db.Close(); err != nil && closeErr == nil {
			closeErr = errors.Wrap(err, "could not close database")
		}
		return closeErr
	}, nil
}

func dbOptions(cfg Config) []migrations.DBOptionFunc {
	opts := []migrations.DBOptionFunc{migrations.WithMigrationsTable(cfg.MigrationsTable)}

	if cfg.ConnectionAttempts > 0 {
		opts = append(opts, migrations.WithConnectionAttempts(cfg.ConnectionAttempts))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, migrations.WithConnectionTimeout(cfg.Timeout))
	}

	return opts
}

func loggerOption(cfg Config, w io.Writer, noColor bool) migrations.OptionFunc {
	switch {
	case cfg.Log == LogStructured:
		lg := slog.New(logger.NewTintHandler(w, noColor, cfg.Debug || cfg.PrintSQL))
		return migrations.UseStructuredLogger(lg, cfg.PrintSQL, cfg.Debug)
	case cfg.Log == LogPlain || noColor:
		return migrations.UseLogger(log.New(w, "", 0), cfg.PrintSQL, cfg.Debug)
	default:
		return migrations.UseColorLogger(log.New(w, "", 0), cfg.PrintSQL, cfg.Debug)
	}
}

// mysqlDSN accepts both a regular url and the driver's own DSN behind
// the mysql:// scheme. Multi statement scripts are always allowed.
func mysqlDSN(databaseURL string) (string, error) {
	dsn := strings.TrimPrefix(databaseURL, "mysql://")
	if u, err := dburl.Parse(databaseURL); err == nil {
		dsn = u.DSN
	}

	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidConfig, "mysql url [%s] is invalid: %s", redact(databaseURL), err.Error())
	}

	mysqlCfg.MultiStatements = true

	return mysqlCfg.FormatDSN(), nil
}

func redact(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return databaseURL
	}

	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return databaseURL
	}

	return scheme + "://***@" + rest[at+1:]
}
