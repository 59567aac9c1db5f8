package source

import (
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"sort"
	"time"
)

var (
	ErrMigrationsFolderInvalid = errors.New("migrations folder is missing or is not a directory")
	ErrMigrationAlreadyExists  = errors.New("migration with such name already exists")
	ErrNotLoaded               = errors.New("migration source has not been loaded")
	ErrDuplicateIdentifier     = errors.New("migration identifier is used by more than one source")
)

// Source is a registry that can also create new migration files
type Source interface {
	database.Registry

	IsValid() bool
	AlreadyExists(name string) bool
	Create(name string, now time.Time) (string, error)
}

// resolve picks the descriptors for the given files, or all of them when
// files is empty, drops the excluded ones and sorts by file
func resolve(all migration.Descriptors, files, exclude []string) migration.Descriptors {
	only := toSet(files)
	skip := toSet(exclude)

	var result migration.Descriptors
	for i := range all {
		if len(only) > 0 {
			if _, ok := only[all[i].File]; !ok {
				continue
			}
		}

		if _, ok := skip[all[i].File]; ok {
			continue
		}

		result = append(result, all[i])
	}

	sort.Sort(result)

	return result
}

// checkIdentifiers fails when two sources derive the same identifier
func checkIdentifiers(all migration.Descriptors) error {
	seen := make(map[string]string, len(all))
	for i := range all {
		if other, ok := seen[all[i].Name]; ok {
			return errors.Wrapf(
				migration.ErrInvalidMigrationUnit,
				"%s: [%s] and [%s]", ErrDuplicateIdentifier.Error(), other, all[i].File,
			)
		}

		seen[all[i].Name] = all[i].File
	}

	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
