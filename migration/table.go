package migration

import (
	"github.com/pkg/errors"
	"sort"
	"sync"
)

var ErrAlreadyRegistered = errors.New("migration unit is already registered")

// DefaultTable is where Register and MustRegister put the units, usually
// from init functions of the files living in the migrations folder
var DefaultTable = NewTable()

// Table maps migration names to the factories producing their units
type Table struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewTable() *Table {
	return &Table{factories: make(map[string]Factory)}
}

func (t *Table) Register(name string, f Factory) error {
	if name == "" {
		return errors.Wrap(ErrInvalidMigrationUnit, "migration name must not be empty")
	}

	if f == nil {
		return errors.Wrapf(ErrInvalidMigrationUnit, "factory for [%s] must not be nil", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.factories[name]; ok {
		return errors.Wrapf(ErrAlreadyRegistered, "%s", name)
	}

	t.factories[name] = f

	return nil
}

func (t *Table) Lookup(name string) (Factory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	f, ok := t.factories[name]
	return f, ok
}

func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.factories))
	for name := range t.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func Register(name string, f Factory) error {
	return DefaultTable.Register(name, f)
}

func MustRegister(name string, f Factory) {
	if err := DefaultTable.Register(name, f); err != nil {
		panic(err)
	}
}
