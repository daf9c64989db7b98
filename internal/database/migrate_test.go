package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-logistics/migrations"
)

func TestMigrationFilesOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.up.sql":   {Data: []byte("SELECT 2")},
		"001_a.up.sql":   {Data: []byte("SELECT 1")},
		"001_a.down.sql": {Data: []byte("SELECT -1")},
		"002_b.down.sql": {Data: []byte("SELECT -2")},
		"README.md":      {Data: []byte("notes")},
	}

	up, err := MigrationFiles(fsys, Up)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.up.sql", "002_b.up.sql"}, up)

	down, err := MigrationFiles(fsys, Down)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b.down.sql", "001_a.down.sql"}, down)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	up, err := MigrationFiles(migrations.FS, Up)
	require.NoError(t, err)
	down, err := MigrationFiles(migrations.FS, Down)
	require.NoError(t, err)

	require.NotEmpty(t, up)
	assert.Len(t, down, len(up))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("down")
	require.NoError(t, err)
	assert.Equal(t, Down, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
