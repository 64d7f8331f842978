package postgres

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	forced     int
	closeSrc   error
	closeDB    error
}

func (f *fakeMigrate) Up() error                    { return f.upErr }
func (f *fakeMigrate) Down() error                  { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) { return f.version, f.dirty, f.versionErr }
func (f *fakeMigrate) Force(v int) error            { f.forced = v; return nil }
func (f *fakeMigrate) Close() (error, error)        { return f.closeSrc, f.closeDB }

func TestMigrator_UpIgnoresNoChange(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange}}
	require.NoError(t, m.Up())
}

func TestMigrator_UpWrapsFailure(t *testing.T) {
	boom := errors.New("boom")
	m := &Migrator{m: &fakeMigrate{upErr: boom}}
	assert.ErrorIs(t, m.Up(), boom)
}

func TestMigrator_DownIgnoresNoChange(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{downErr: migrate.ErrNoChange}}
	require.NoError(t, m.Down())
}

func TestMigrator_VersionNilIsZero(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)
}

func TestMigrator_Version(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{version: 1, dirty: true}}
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.True(t, dirty)
}

func TestMigrator_Force(t *testing.T) {
	f := &fakeMigrate{}
	m := &Migrator{m: f}

	require.Error(t, m.Force(-1))
	require.NoError(t, m.Force(1))
	assert.Equal(t, 1, f.forced)
}

func TestMigrator_CloseJoinsErrors(t *testing.T) {
	src, db := errors.New("source"), errors.New("database")
	m := &Migrator{m: &fakeMigrate{closeSrc: src, closeDB: db}}

	err := m.Close()
	assert.ErrorIs(t, err, src)
	assert.ErrorIs(t, err, db)
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/auth", migrateURL("postgres://u:p@db:5432/auth"))
	assert.Equal(t, "pgx5://u:p@db:5432/auth", migrateURL("postgresql://u:p@db:5432/auth"))
	assert.Equal(t, "pgx5://db/auth", migrateURL("pgx5://db/auth"))
}

func TestMigrationsFS_Pairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}
