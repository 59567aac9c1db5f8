package database

import (
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test_ValidateTableName(t *testing.T) {
	tt := []struct {
		name  string
		valid bool
	}{
		{name: "migrations", valid: true},
		{name: "_schema_versions2", valid: true},
		{name: "Migrations", valid: true},
		{name: "", valid: false},
		{name: "2migrations", valid: false},
		{name: "migrations; DROP TABLE users", valid: false},
		{name: "public.migrations", valid: false},
		{name: "`migrations`", valid: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTableName(tc.name)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTableName))
			}
		})
	}
}

func Test_UnitExecutionError(t *testing.T) {
	driverErr := errors.New("syntax error near \"CREATE\"")
	err := error(&UnitExecutionError{File: "001_CreateUsers.sql", Direction: migration.Up, Err: driverErr})

	assert.Equal(t, `could not run up of migration [001_CreateUsers.sql]: syntax error near "CREATE"`, err.Error())
	assert.Equal(t, driverErr, errors.Cause(err))
	assert.True(t, errors.Is(err, driverErr))

	var uErr *UnitExecutionError
	require.True(t, errors.As(errors.Wrap(err, "migrate"), &uErr))
	assert.Equal(t, "001_CreateUsers.sql", uErr.File)
}

func Test_Observers(t *testing.T) {
	var got []string

	o := Observers{
		ObserverFunc(func(e Event) { got = append(got, "first "+e.Kind.String()) }),
		nil,
		NullObserver{},
		ObserverFunc(func(e Event) { got = append(got, "second "+e.File) }),
	}

	o.Notify(Event{Kind: UnitStarted, File: "001_Foo.sql"})

	assert.Equal(t, []string{"first unit-started", "second 001_Foo.sql"}, got)
}

func Test_BatchAndState(t *testing.T) {
	assert.True(t, Batch{Operation: OperationMigrate, Step: 3}.Empty())
	assert.False(t, Batch{Files: []string{"001_Foo.sql"}}.Empty())

	assert.Equal(t, "present", SchemaPresent.String())
	assert.Equal(t, "absent", SchemaAbsent.String())
	assert.Equal(t, "unknown", SchemaUnknown.String())
	assert.Equal(t, "event(42)", EventKind(42).String())
}
