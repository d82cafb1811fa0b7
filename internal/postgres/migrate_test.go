package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"010_reports.sql": {Data: []byte("SELECT 10;")},
		"002_orders.sql":  {Data: []byte("SELECT 2;")},
		"001_core.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"seed.sql":        {Data: []byte("SELECT 0;")},
		"abc_x.sql":       {Data: []byte("SELECT 0;")},
	}

	got, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{got[0].Version, got[1].Version, got[2].Version})
	assert.Equal(t, "001_core.sql", got[0].Name)
	assert.Equal(t, "SELECT 2;", got[1].SQL)
}

func TestMigrations_Embedded(t *testing.T) {
	got, err := LoadMigrations(Migrations())
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[0].Version)
	assert.Contains(t, got[0].SQL, "CREATE TABLE IF NOT EXISTS medicines")

	var all string
	for _, m := range got {
		all += m.SQL
	}
	assert.Contains(t, all, "submission_id TEXT NOT NULL UNIQUE")
}
