package source

import (
	"context"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/oniti/migrations/internal/logger"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const DefaultMigrationsFolder = "./migrations"

// LocalFolder discovers migrations in a single folder. SQL files are parsed
// into units, files with any other extension must have their identifier
// registered in the registration table.
type LocalFolder struct {
	fs     vfs.FileSystem
	folder string
	table  *migration.Table
	lg     logger.Logger

	mu     sync.RWMutex
	loaded migration.Descriptors
	ready  bool
}

var _ Source = (*LocalFolder)(nil)

func NewLocalFolder(fs vfs.FileSystem, folder string, table *migration.Table, lg logger.Logger) *LocalFolder {
	if folder == "" {
		folder = DefaultMigrationsFolder
	}

	if table == nil {
		table = migration.DefaultTable
	}

	if lg == nil {
		lg = &logger.NullLogger{}
	}

	return &LocalFolder{fs: fs, folder: folder, table: table, lg: lg}
}

func (lf *LocalFolder) IsValid() bool {
	info, err := lf.fs.Stat(lf.folder)
	if err != nil {
		return false
	}

	return info.IsDir()
}

// Load scans the folder and builds every unit found there,
// the previous scan result is replaced only when the whole scan succeeds
func (lf *LocalFolder) Load(ctx context.Context) error {
	if !lf.IsValid() {
		return errors.Wrapf(ErrMigrationsFolderInvalid, "%s", lf.folder)
	}

	names, err := lf.sourceNames()
	if err != nil {
		return err
	}

	descriptors := make(migration.Descriptors, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			descriptors[i], errs[i] = lf.readOne(names[i])
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "loading of migrations interrupted")
	case <-done:
	}

	for i := range errs {
		if errs[i] != nil {
			lf.lg.Error(errs[i])
			return errs[i]
		}
	}

	sort.Sort(descriptors)

	if err := checkIdentifiers(descriptors); err != nil {
		return err
	}

	lf.lg.Debugf("found %d migration(s) in %s", len(descriptors), lf.folder)

	lf.mu.Lock()
	lf.loaded = descriptors
	lf.ready = true
	lf.mu.Unlock()

	return nil
}

func (lf *LocalFolder) ListAvailable() []string {
	lf.mu.RLock()
	defer lf.mu.RUnlock()

	return lf.loaded.Files()
}

func (lf *LocalFolder) Resolve(files []string, exclude []string) (migration.Descriptors, error) {
	lf.mu.RLock()
	defer lf.mu.RUnlock()

	if !lf.ready {
		return nil, errors.Wrapf(ErrNotLoaded, "%s", lf.folder)
	}

	return resolve(lf.loaded, files, exclude), nil
}

// AlreadyExists tells whether a file with the given identifier is in the folder
func (lf *LocalFolder) AlreadyExists(name string) bool {
	names, err := lf.sourceNames()
	if err != nil {
		return false
	}

	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	for i := range names {
		fn, err := migration.ParseFilename(names[i])
		if err == nil && fn.Name == name {
			return true
		}
	}

	return false
}

// Create writes a new SQL migration stub and returns its path
func (lf *LocalFolder) Create(name string, now time.Time) (string, error) {
	if !lf.IsValid() {
		return "", errors.Wrapf(ErrMigrationsFolderInvalid, "%s", lf.folder)
	}

	filename := migration.CreateFilename(now, name, migration.SQLExtension)
	if _, err := migration.ParseFilename(filename); err != nil {
		return "", err
	}

	if lf.AlreadyExists(name) {
		return "", errors.Wrapf(ErrMigrationAlreadyExists, "%s", name)
	}

	path := filepath.Join(lf.folder, filename)
	if err := vfs.WriteFile(lf.fs, path, []byte(migration.SQLStub), 0o644); err != nil {
		return "", errors.Wrapf(err, "could not create file [%s]", path)
	}

	lf.lg.Successf("created %s", path)

	return path, nil
}

func (lf *LocalFolder) sourceNames() ([]string, error) {
	entries, err := vfs.ReadDir(lf.fs, lf.folder)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read migrations from folder %s", lf.folder)
	}

	var names []string
	for i := range entries {
		if entries[i].IsDir() || strings.HasPrefix(entries[i].Name(), ".") {
			continue
		}

		names = append(names, entries[i].Name())
	}

	sort.Strings(names)

	return names, nil
}

func (lf *LocalFolder) readOne(name string) (migration.Descriptor, error) {
	fn, err := migration.ParseFilename(name)
	if err != nil {
		return migration.Descriptor{}, err
	}

	var unit migration.Unit
	if fn.Ext == migration.SQLExtension {
		contents, err := vfs.ReadFile(lf.fs, filepath.Join(lf.folder, name))
		if err != nil {
			return migration.Descriptor{}, errors.Wrapf(err, "could not read [%s]", name)
		}

		if unit, err = migration.ParseSQL(name, contents); err != nil {
			return migration.Descriptor{}, err
		}
	} else {
		f, ok := lf.table.Lookup(fn.Name)
		if !ok {
			return migration.Descriptor{}, errors.Wrapf(
				migration.ErrInvalidMigrationUnit,
				"no unit is registered as [%s] for [%s]", fn.Name, name,
			)
		}

		if unit, err = migration.Build(fn.Name, f); err != nil {
			return migration.Descriptor{}, err
		}
	}

	return migration.Descriptor{File: fn.Full, Name: fn.Name, Unit: unit}, nil
}
