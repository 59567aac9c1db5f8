package source

import (
	"context"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemorySource keeps units built from factories keyed by file name,
// it is used by library users who do not keep migrations on disk
type InMemorySource struct {
	mu        sync.RWMutex
	factories map[string]migration.Factory
	loaded    migration.Descriptors
	ready     bool
}

var _ Source = (*InMemorySource)(nil)

func NewInMemorySource(factories map[string]migration.Factory) *InMemorySource {
	fs := make(map[string]migration.Factory, len(factories))
	for file, f := range factories {
		fs[file] = f
	}

	return &InMemorySource{factories: fs}
}

func (s *InMemorySource) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]string, 0, len(s.factories))
	for file := range s.factories {
		files = append(files, file)
	}

	sort.Strings(files)

	descriptors := make(migration.Descriptors, 0, len(files))
	for _, file := range files {
		fn, err := migration.ParseFilename(file)
		if err != nil {
			return err
		}

		unit, err := migration.Build(file, s.factories[file])
		if err != nil {
			return err
		}

		descriptors = append(descriptors, migration.Descriptor{File: fn.Full, Name: fn.Name, Unit: unit})
	}

	if err := checkIdentifiers(descriptors); err != nil {
		return err
	}

	s.loaded = descriptors
	s.ready = true

	return nil
}

func (s *InMemorySource) ListAvailable() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded.Files()
}

func (s *InMemorySource) Resolve(files []string, exclude []string) (migration.Descriptors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, ErrNotLoaded
	}

	return resolve(s.loaded, files, exclude), nil
}

func (s *InMemorySource) IsValid() bool {
	return true
}

func (s *InMemorySource) AlreadyExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	for file := range s.factories {
		if fn, err := migration.ParseFilename(file); err == nil && fn.Name == name {
			return true
		}
	}

	return false
}

// Create adds an empty unit under a fresh file name
func (s *InMemorySource) Create(name string, now time.Time) (string, error) {
	file := migration.CreateFilename(now, name, migration.SQLExtension)
	if _, err := migration.ParseFilename(file); err != nil {
		return "", err
	}

	if s.AlreadyExists(name) {
		return "", errors.Wrapf(ErrMigrationAlreadyExists, "%s", name)
	}

	s.mu.Lock()
	s.factories[file] = migration.New(nil, nil)
	s.mu.Unlock()

	return file, nil
}
