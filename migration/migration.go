package migration

import (
	"bytes"
	"github.com/pkg/errors"
	"regexp"
	"strings"
	"time"
)

var ErrInvalidMigrationUnit = errors.New("invalid migration unit")

const (
	Up   Direction = "up"
	Down Direction = "down"

	// PrefixLayout is used to generate the sortable prefix of new migration files
	PrefixLayout = "20060102150405"
)

var filenameRegexp = regexp.MustCompile(`^(?P<prefix>[0-9A-Za-z-]+)_(?P<name>\w+?)\.(?P<ext>[A-Za-z0-9]+)$`)

type (
	Direction string

	// Script is an ordered list of statements that are executed
	// one by one inside the active transaction
	Script []string

	// Unit is a single migration, it must be able to describe
	// both the forward and the backward change
	Unit interface {
		Up() Script
		Down() Script
	}

	Factory func() (Unit, error)

	// Filename holds the parts of a migration source name
	// <prefix>_<Name>.<ext>
	Filename struct {
		Full   string
		Prefix string
		Name   string
		Ext    string
	}

	// Descriptor is a discovered and instantiated migration unit.
	// File is the identifier that gets persisted and the ordering key.
	Descriptor struct {
		File string
		Name string
		Unit Unit
	}

	Descriptors []Descriptor
)

func (s Script) String() string {
	var ms bytes.Buffer

	for i := range s {
		ms.WriteString(s[i])

		if !strings.HasSuffix(strings.TrimSpace(s[i]), ";") {
			ms.WriteString(";")
		}

		if i < len(s)-1 {
			ms.WriteString("\n")
		}
	}

	return ms.String()
}

// ParseFilename derives the identifier parts from a migration source name
func ParseFilename(name string) (Filename, error) {
	matches := filenameRegexp.FindStringSubmatch(name)
	if matches == nil {
		return Filename{}, errors.Wrapf(
			ErrInvalidMigrationUnit,
			"source [%s] does not follow the <prefix>_<Name>.<ext> convention", name,
		)
	}

	return Filename{
		Full:   name,
		Prefix: matches[1],
		Name:   matches[2],
		Ext:    strings.ToLower(matches[3]),
	}, nil
}

// CreateFilename builds a sortable file name for a new migration
func CreateFilename(now time.Time, name, ext string) string {
	var result bytes.Buffer
	result.WriteString(now.UTC().Format(PrefixLayout))
	result.WriteString("_")
	result.WriteString(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	result.WriteString(".")
	result.WriteString(ext)
	return result.String()
}

// Build calls the factory and makes sure a usable unit was produced
func Build(name string, f Factory) (Unit, error) {
	if f == nil {
		return nil, errors.Wrapf(ErrInvalidMigrationUnit, "no factory for [%s]", name)
	}

	u, err := f()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidMigrationUnit, "could not build [%s]: %s", name, err.Error())
	}

	if u == nil {
		return nil, errors.Wrapf(ErrInvalidMigrationUnit, "factory for [%s] returned no unit", name)
	}

	return u, nil
}

func (d Descriptors) Files() (result []string) {
	for i := range d {
		result = append(result, d[i].File)
	}
	return result
}

func (d Descriptors) Len() int {
	return len(d)
}

func (d Descriptors) Less(i, j int) bool {
	return d[i].File < d[j].File
}

func (d Descriptors) Swap(i, j int) {
	d[i], d[j] = d[j], d[i]
}

// Static is a unit with fixed scripts
type Static struct {
	Migrate  Script
	Rollback Script
}

var _ Unit = (*Static)(nil)

func (s *Static) Up() Script {
	return s.Migrate
}

func (s *Static) Down() Script {
	return s.Rollback
}

// New returns a factory of a static unit
func New(migrate, rollback []string) Factory {
	return func() (Unit, error) {
		return &Static{Migrate: migrate, Rollback: rollback}, nil
	}
}
