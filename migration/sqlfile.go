package migration

import (
	"bufio"
	"bytes"
	"github.com/pkg/errors"
	"strings"
)

const (
	markerPrefix = "-- +migrate"

	SQLExtension = "sql"
)

// SQLStub is written into newly created migration files
const SQLStub = `-- +migrate up

-- +migrate down
`

// ParseSQL reads a migration file with "-- +migrate up" and "-- +migrate down"
// sections into a unit. Both markers are required, sections may be empty.
func ParseSQL(name string, contents []byte) (Unit, error) {
	var up, down bytes.Buffer
	var current *bytes.Buffer
	var seenUp, seenDown bool

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(strings.ToLower(trimmed), markerPrefix) {
			switch Direction(strings.ToLower(strings.TrimSpace(trimmed[len(markerPrefix):]))) {
			case Up:
				if seenUp {
					return nil, errors.Wrapf(ErrInvalidMigrationUnit, "[%s] has more than one up section", name)
				}
				seenUp = true
				current = &up
			case Down:
				if seenDown {
					return nil, errors.Wrapf(ErrInvalidMigrationUnit, "[%s] has more than one down section", name)
				}
				seenDown = true
				current = &down
			default:
				return nil, errors.Wrapf(ErrInvalidMigrationUnit, "[%s] has an unknown marker %q", name, trimmed)
			}

			continue
		}

		if current == nil {
			if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				return nil, errors.Wrapf(ErrInvalidMigrationUnit, "[%s] has statements outside of a section", name)
			}

			continue
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "could not read [%s]", name)
	}

	if !seenUp || !seenDown {
		return nil, errors.Wrapf(ErrInvalidMigrationUnit, "[%s] must have both up and down sections", name)
	}

	return &Static{Migrate: toScript(up.String()), Rollback: toScript(down.String())}, nil
}

func toScript(section string) Script {
	section = strings.TrimSpace(section)
	if section == "" {
		return nil
	}

	return Script{section}
}
