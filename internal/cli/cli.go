package cli

import (
	"context"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/oniti/migrations"
	"github.com/oniti/migrations/internal/source"
	"github.com/pkg/errors"
	"io"
	"time"
)

var ErrConfigAlreadyExists = errors.New("configuration file already exists")

type (
	CloserFunc func() error

	// Env is what the commands need from the outside world
	Env struct {
		FS      vfs.FileSystem
		Stdout  io.Writer
		Stderr  io.Writer
		NoColor bool
		Now     func() time.Time
	}

	App struct {
		migrator *migrations.Migrator
	}
)

func New(cfg Config, env *Env) (*App, CloserFunc, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}

	m, closer, err := createMigrator(cfg, env)
	if err != nil {
		return nil, nil, err
	}

	return &App{migrator: m}, CloserFunc(closer), nil
}

func (app *App) Migrate(ctx context.Context) (migrations.Batch, error) {
	return app.migrator.Migrate(ctx)
}

// Rollback reverts the latest step when no step is given
func (app *App) Rollback(ctx context.Context, step *int) (migrations.Batch, error) {
	var configurators []migrations.ActionConfigurator
	if step != nil {
		configurators = append(configurators, migrations.WithStep(*step))
	}

	return app.migrator.Rollback(ctx, configurators...)
}

func (app *App) Status(ctx context.Context) (migrations.Status, error) {
	return app.migrator.Status(ctx)
}

// CreateMigration only needs the folder, no database connection is made
func CreateMigration(env *Env, folder, name string) (string, error) {
	if folder == "" {
		folder = source.DefaultMigrationsFolder
	}

	lf := source.NewLocalFolder(env.FS, folder, nil, nil)
	if !lf.IsValid() {
		return "", errors.Wrapf(source.ErrMigrationsFolderInvalid, "%s", folder)
	}

	return lf.Create(name, env.Now())
}

func InitCfg(fs vfs.FileSystem, path string) error {
	if FileExists(fs, path) {
		return errors.Wrapf(ErrConfigAlreadyExists, "%s", path)
	}

	if err := vfs.WriteFile(fs, path, []byte(configFileStub), 0o644); err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	return nil
}

func FileExists(fs vfs.FileSystem, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}

const configFileStub = `version: "1"
migrations:
  # %%NAME%% reads the value from the NAME environment variable
  database_url: "%%DATABASE_URL%%"
  local_folder: ./migrations
  migrations_table: migrations
  connection_attempts: 1
  timeout: 60s
`
