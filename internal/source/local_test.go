package source

import (
	"context"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/oniti/migrations/internal/logger"
	"github.com/oniti/migrations/migration"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

const folder = "/migrations"

func newFolder(t *testing.T, files map[string]string) vfs.FileSystem {
	t.Helper()

	fs := memoryfs.New()
	require.NoError(t, fs.MkdirAll(folder, 0o755))

	for name, contents := range files {
		require.NoError(t, vfs.WriteFile(fs, folder+"/"+name, []byte(contents), 0o644))
	}

	return fs
}

func sqlUnit(up, down string) string {
	return "-- +migrate up\n" + up + "\n-- +migrate down\n" + down + "\n"
}

func Test_LocalFolderLoad(t *testing.T) {
	t.Run("sql and registered units are loaded in file order", func(t *testing.T) {
		table := migration.NewTable()
		require.NoError(t, table.Register("SeedUsers", migration.New(
			[]string{"INSERT INTO users (name) VALUES ('root')"},
			[]string{"DELETE FROM users WHERE name = 'root'"},
		)))

		fs := newFolder(t, map[string]string{
			"20240102000000_CreatePosts.sql": sqlUnit("CREATE TABLE posts (id INT);", "DROP TABLE posts;"),
			"20240101000000_CreateUsers.sql": sqlUnit("CREATE TABLE users (name TEXT);", "DROP TABLE users;"),
			"20240103000000_SeedUsers.go":    "package migrations",
			".gitkeep":                       "",
		})
		require.NoError(t, fs.MkdirAll(folder+"/nested", 0o755))

		lf := NewLocalFolder(fs, folder, table, &logger.NullLogger{})
		require.NoError(t, lf.Load(context.Background()))

		assert.Equal(t, []string{
			"20240101000000_CreateUsers.sql",
			"20240102000000_CreatePosts.sql",
			"20240103000000_SeedUsers.go",
		}, lf.ListAvailable())

		all, err := lf.Resolve(nil, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)

		assert.Equal(t, "CreateUsers", all[0].Name)
		assert.Equal(t, migration.Script{"CREATE TABLE users (name TEXT);"}, all[0].Unit.Up())
		assert.Equal(t, migration.Script{"DROP TABLE users;"}, all[0].Unit.Down())
		assert.Equal(t, "SeedUsers", all[2].Name)
		assert.Equal(t, migration.Script{"INSERT INTO users (name) VALUES ('root')"}, all[2].Unit.Up())
	})

	t.Run("unregistered non sql unit is invalid", func(t *testing.T) {
		fs := newFolder(t, map[string]string{
			"20240101000000_Missing.go": "package migrations",
		})

		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)
		err := lf.Load(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})

	t.Run("sql file without markers is invalid", func(t *testing.T) {
		fs := newFolder(t, map[string]string{
			"20240101000000_Broken.sql": "CREATE TABLE foo (id INT);",
		})

		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)
		err := lf.Load(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})

	t.Run("file not following the naming convention is invalid", func(t *testing.T) {
		fs := newFolder(t, map[string]string{
			"create_users": sqlUnit("SELECT 1;", "SELECT 1;"),
		})

		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)
		err := lf.Load(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})

	t.Run("the same identifier in two files is invalid", func(t *testing.T) {
		fs := newFolder(t, map[string]string{
			"20240101000000_CreateUsers.sql": sqlUnit("SELECT 1;", "SELECT 1;"),
			"20240102000000_CreateUsers.sql": sqlUnit("SELECT 2;", "SELECT 2;"),
		})

		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)
		err := lf.Load(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})

	t.Run("missing folder is reported", func(t *testing.T) {
		lf := NewLocalFolder(memoryfs.New(), "/nowhere", migration.NewTable(), nil)

		assert.False(t, lf.IsValid())

		err := lf.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMigrationsFolderInvalid))
	})

	t.Run("empty folder has nothing available", func(t *testing.T) {
		lf := NewLocalFolder(newFolder(t, nil), folder, migration.NewTable(), nil)
		require.NoError(t, lf.Load(context.Background()))

		assert.Empty(t, lf.ListAvailable())

		all, err := lf.Resolve(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func Test_LocalFolderResolve(t *testing.T) {
	fs := newFolder(t, map[string]string{
		"001_First.sql":  sqlUnit("SELECT 1;", "SELECT 1;"),
		"002_Second.sql": sqlUnit("SELECT 2;", "SELECT 2;"),
		"003_Third.sql":  sqlUnit("SELECT 3;", "SELECT 3;"),
	})

	lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)

	t.Run("resolve before load fails", func(t *testing.T) {
		_, err := lf.Resolve(nil, nil)
		assert.True(t, errors.Is(err, ErrNotLoaded))
	})

	require.NoError(t, lf.Load(context.Background()))

	tt := []struct {
		name    string
		files   []string
		exclude []string
		expect  []string
	}{
		{name: "all", expect: []string{"001_First.sql", "002_Second.sql", "003_Third.sql"}},
		{name: "excluding applied", exclude: []string{"001_First.sql"}, expect: []string{"002_Second.sql", "003_Third.sql"}},
		{name: "only given files in file order", files: []string{"003_Third.sql", "001_First.sql"}, expect: []string{"001_First.sql", "003_Third.sql"}},
		{name: "unknown files are ignored", files: []string{"004_Gone.sql", "002_Second.sql"}, expect: []string{"002_Second.sql"}},
		{name: "everything excluded", exclude: []string{"001_First.sql", "002_Second.sql", "003_Third.sql"}, expect: nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			d, err := lf.Resolve(tc.files, tc.exclude)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, d.Files())
		})
	}
}

func Test_LocalFolderCreate(t *testing.T) {
	now := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("stub with both markers is written", func(t *testing.T) {
		fs := newFolder(t, nil)
		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)

		path, err := lf.Create("create users", now)
		require.NoError(t, err)
		assert.Equal(t, "/migrations/20240304050607_create_users.sql", path)

		contents, err := vfs.ReadFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, migration.SQLStub, string(contents))

		assert.True(t, lf.AlreadyExists("create_users"))
		require.NoError(t, lf.Load(context.Background()))
		assert.Equal(t, []string{"20240304050607_create_users.sql"}, lf.ListAvailable())
	})

	t.Run("existing identifier is not overwritten", func(t *testing.T) {
		fs := newFolder(t, map[string]string{
			"20200101000000_create_users.sql": sqlUnit("SELECT 1;", "SELECT 1;"),
		})
		lf := NewLocalFolder(fs, folder, migration.NewTable(), nil)

		_, err := lf.Create("create_users", now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMigrationAlreadyExists))
	})

	t.Run("invalid name is rejected", func(t *testing.T) {
		lf := NewLocalFolder(newFolder(t, nil), folder, migration.NewTable(), nil)

		_, err := lf.Create("users!", now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})
}

func Test_InMemorySource(t *testing.T) {
	src := NewInMemorySource(map[string]migration.Factory{
		"002_Second.go": migration.New([]string{"SELECT 2"}, []string{"SELECT 2"}),
		"001_First.go":  migration.New([]string{"SELECT 1"}, []string{"SELECT 1"}),
	})

	require.NoError(t, src.Load(context.Background()))
	assert.Equal(t, []string{"001_First.go", "002_Second.go"}, src.ListAvailable())

	d, err := src.Resolve(nil, []string{"001_First.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_Second.go"}, d.Files())

	t.Run("failing factory makes the unit invalid", func(t *testing.T) {
		broken := NewInMemorySource(map[string]migration.Factory{
			"001_Broken.go": func() (migration.Unit, error) {
				return nil, errors.New("boom")
			},
		})

		err := broken.Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, migration.ErrInvalidMigrationUnit))
	})
}
