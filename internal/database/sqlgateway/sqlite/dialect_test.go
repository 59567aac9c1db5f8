package sqlite

import (
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func Test_SqliteDialect(t *testing.T) {
	d := NewDialect("migrations")

	db, err := sqlx.Open(DriverName, filepath.Join(t.TempDir(), "dialect.db"))
	require.NoError(t, err)
	defer db.Close()

	t.Run("probe of a missing table is undefined table", func(t *testing.T) {
		_, err := db.Exec(d.ProbeQuery())
		require.Error(t, err)

		assert.True(t, d.IsUndefinedTable(err))
		assert.False(t, d.IsUniqueViolation(err))
	})

	t.Run("syntax error is not undefined table", func(t *testing.T) {
		_, err := db.Exec("SELEC 1")
		require.Error(t, err)

		assert.False(t, d.IsUndefinedTable(err))
	})

	t.Run("second insert of a file is a unique violation", func(t *testing.T) {
		_, err := db.Exec(d.CreateQuery())
		require.NoError(t, err)

		_, err = db.Exec("INSERT INTO migrations (file, step) VALUES (?, ?)", "001_Foo.sql", 1)
		require.NoError(t, err)

		_, err = db.Exec("INSERT INTO migrations (file, step) VALUES (?, ?)", "001_Foo.sql", 2)
		require.Error(t, err)

		assert.True(t, d.IsUniqueViolation(err))
		assert.False(t, d.IsUndefinedTable(err))

		_, err = db.Exec(d.ProbeQuery())
		assert.NoError(t, err)
	})

	t.Run("foreign errors are not classified", func(t *testing.T) {
		err := errors.New("disk I/O error")
		assert.False(t, d.IsUndefinedTable(err))
		assert.False(t, d.IsUniqueViolation(err))
		assert.False(t, d.IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrBusy}))
	})
}
