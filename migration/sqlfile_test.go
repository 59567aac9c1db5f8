package migration

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test_SQLFileCanBeParsed(t *testing.T) {
	t.Run("up and down sections", func(t *testing.T) {
		contents := `-- creates the foo table
-- +migrate up
CREATE TABLE foo (id INT PRIMARY KEY);
INSERT INTO foo (id) VALUES (1);

-- +Migrate Down
DROP TABLE foo;
`
		u, err := ParseSQL("001_Foo.sql", []byte(contents))
		require.NoError(t, err)
		assert.Equal(t, Script{"CREATE TABLE foo (id INT PRIMARY KEY);\nINSERT INTO foo (id) VALUES (1);"}, u.Up())
		assert.Equal(t, Script{"DROP TABLE foo;"}, u.Down())
	})

	t.Run("empty down section gives an empty script", func(t *testing.T) {
		u, err := ParseSQL("001_Foo.sql", []byte("-- +migrate up\nCREATE TABLE foo (id INT);\n-- +migrate down\n"))
		require.NoError(t, err)
		assert.Len(t, u.Up(), 1)
		assert.Empty(t, u.Down())
	})

	t.Run("stub is a valid empty unit", func(t *testing.T) {
		u, err := ParseSQL("001_Foo.sql", []byte(SQLStub))
		require.NoError(t, err)
		assert.Empty(t, u.Up())
		assert.Empty(t, u.Down())
	})

	invalid := []struct {
		name     string
		contents string
	}{
		{name: "missing down marker", contents: "-- +migrate up\nCREATE TABLE foo (id INT);\n"},
		{name: "missing up marker", contents: "-- +migrate down\nDROP TABLE foo;\n"},
		{name: "duplicated up marker", contents: "-- +migrate up\n-- +migrate up\n-- +migrate down\n"},
		{name: "unknown marker", contents: "-- +migrate sideways\n"},
		{name: "statement before any marker", contents: "DROP TABLE foo;\n-- +migrate up\n-- +migrate down\n"},
		{name: "empty file", contents: ""},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSQL("001_Foo.sql", []byte(tc.contents))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMigrationUnit))
		})
	}
}

func Test_RegistrationTable(t *testing.T) {
	tbl := NewTable()

	require.NoError(t, tbl.Register("CreateFoo", New([]string{"CREATE TABLE foo (id INT)"}, nil)))
	require.NoError(t, tbl.Register("CreateBar", New([]string{"CREATE TABLE bar (id INT)"}, nil)))

	t.Run("registered factories can be looked up", func(t *testing.T) {
		f, ok := tbl.Lookup("CreateFoo")
		require.True(t, ok)
		u, err := f()
		require.NoError(t, err)
		assert.Equal(t, Script{"CREATE TABLE foo (id INT)"}, u.Up())

		_, ok = tbl.Lookup("CreateBaz")
		assert.False(t, ok)
	})

	t.Run("names are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"CreateBar", "CreateFoo"}, tbl.Names())
	})

	t.Run("a name can only be registered once", func(t *testing.T) {
		err := tbl.Register("CreateFoo", New(nil, nil))
		assert.True(t, errors.Is(err, ErrAlreadyRegistered))
	})

	t.Run("empty name and nil factory are rejected", func(t *testing.T) {
		assert.True(t, errors.Is(tbl.Register("", New(nil, nil)), ErrInvalidMigrationUnit))
		assert.True(t, errors.Is(tbl.Register("Nope", nil), ErrInvalidMigrationUnit))
	})
}
