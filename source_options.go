package migrations

import (
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/oniti/migrations/internal/logger"
	"github.com/oniti/migrations/internal/source"
	"github.com/oniti/migrations/migration"
)

// UseLocalFolderSource reads migrations from a folder on disk
func UseLocalFolderSource(folder string) OptionFunc {
	return UseFileSystemSource(osfs.New(), folder)
}

// UseFileSystemSource reads migrations from a folder of any vfs file system
func UseFileSystemSource(fs vfs.FileSystem, folder string) OptionFunc {
	return func(m *Migrator) error {
		m.newSource = func(lg logger.Logger) (source.Source, error) {
			return source.NewLocalFolder(fs, folder, m.table, lg), nil
		}
		return nil
	}
}

// UseInMemorySource takes units keyed by their file names
func UseInMemorySource(factories map[string]migration.Factory) OptionFunc {
	return func(m *Migrator) error {
		m.newSource = func(logger.Logger) (source.Source, error) {
			return source.NewInMemorySource(factories), nil
		}
		return nil
	}
}

// WithRegistrationTable replaces the default table non SQL units are looked up in
func WithRegistrationTable(t *migration.Table) OptionFunc {
	return func(m *Migrator) error {
		if t != nil {
			m.table = t
		}
		return nil
	}
}
