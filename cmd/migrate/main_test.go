package main

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_create_transactions.sql", true, "0001", "create_transactions"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := filenamePattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, m)
				return
			}
			require.Len(t, m, 3)
			assert.Equal(t, tt.version, m[1])
			assert.Equal(t, tt.name, m[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	create := "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.goals` (goal_id STRING);"
	fsys := fstest.MapFS{
		"0002_add_column.sql": {Data: []byte("ALTER TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.goals` ADD COLUMN x INT64;")},
		"0001_create.sql":     {Data: []byte(create)},
		"README.md":           {Data: []byte("notes")},
	}

	got, err := readMigrations(fsys, "proj", "finance")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "create", got[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.finance.goals` (goal_id STRING);", got[0].SQL)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(create))), got[0].Checksum)
	assert.Equal(t, 2, got[1].Version)

	other, err := readMigrations(fsys, "other", "ds")
	require.NoError(t, err)
	assert.Equal(t, got[0].Checksum, other[0].Checksum, "checksum ignores placeholders")
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}
	_, err := readMigrations(fsys, "p", "d")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	sqlFS, err := fs.Sub(embedded, "sql")
	require.NoError(t, err)

	got, err := readMigrations(sqlFS, "proj", "finance")
	require.NoError(t, err)
	require.NotEmpty(t, got)

	for i, m := range got {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.NotContains(t, m.SQL, "{{")
		assert.Contains(t, m.SQL, "`proj.finance.")
	}
}

func TestPending(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "changed"},
	}

	todo, drifted := pending(migrations, applied)
	require.Len(t, todo, 1)
	assert.Equal(t, 3, todo[0].Version)
	require.Len(t, drifted, 1)
	assert.Equal(t, 2, drifted[0].Version)

	todo, drifted = pending(migrations, nil)
	assert.Len(t, todo, 3)
	assert.Empty(t, drifted)
}
