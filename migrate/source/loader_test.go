package source

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/schema"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestLoaderParsesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("migrations", 0o755))

	initActions := []actions.Action{
		&actions.CreateTable{Name: "users", Fields: map[string]schema.Field{
			"id": {Type: schema.ColumnType{Name: "serial"}, Options: schema.FieldOptions{PrimaryKey: true}},
		}},
	}
	data, err := actions.MarshalActions(initActions)
	require.NoError(t, err)

	writeFile(t, fs, "migrations/0001_init.json", data)
	writeFile(t, fs, "migrations/0002_backfill.sql", []byte("-- FORWARD\nUPDATE users SET x = 1;\n"))
	writeFile(t, fs, "migrations/0003_audit.trigger.sql", []byte("-- FORWARD\nCREATE TRIGGER t;\n"))
	writeFile(t, fs, "migrations/0004_row_access.policy.sql", []byte("-- FORWARD\nCREATE POLICY p;\n"))
	writeFile(t, fs, "migrations/README.md", []byte("not a migration"))
	require.NoError(t, fs.MkdirAll("migrations/archive", 0o755))

	migrations, err := NewLoader(fs, "migrations").Load()
	require.NoError(t, err)
	require.Len(t, migrations, 4)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, KindAuto, migrations[0].Kind)
	assert.Equal(t, initActions, migrations[0].Actions)

	assert.Equal(t, KindSQL, migrations[1].Kind)
	assert.Equal(t, "backfill", migrations[1].Name)
	assert.Contains(t, migrations[1].SQL, "UPDATE users")

	assert.Equal(t, KindTrigger, migrations[2].Kind)
	assert.Equal(t, "audit", migrations[2].Name)

	assert.Equal(t, KindPolicy, migrations[3].Kind)
	assert.Equal(t, "row_access", migrations[3].Name)
}

func TestLoaderRejectsDuplicateVersions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("migrations", 0o755))
	writeFile(t, fs, "migrations/0001_first.sql", []byte("SELECT 1;"))
	writeFile(t, fs, "migrations/0001_second.sql", []byte("SELECT 2;"))

	_, err := NewLoader(fs, "migrations").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration version 0001")
}

func TestLoaderRejectsMalformedActionFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("migrations", 0o755))
	writeFile(t, fs, "migrations/0001_bad.json", []byte("{not json"))

	_, err := NewLoader(fs, "migrations").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_bad.json")
}

func TestLoaderMissingDirectory(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), "nope").Load()
	require.Error(t, err)
}

func TestLoaderFeedsResolver(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("migrations", 0o755))

	data, err := actions.MarshalActions([]actions.Action{
		&actions.CreateTable{Name: "users", Fields: map[string]schema.Field{
			"id": {Type: schema.ColumnType{Name: "serial"}, Options: schema.FieldOptions{PrimaryKey: true}},
		}},
	})
	require.NoError(t, err)
	writeFile(t, fs, "migrations/0001_init.json", data)

	migrations, err := NewLoader(fs, "migrations").Load()
	require.NoError(t, err)

	r := NewResolver(migrations)
	content, err := r.Resolve(migrations[0], Backward)
	require.NoError(t, err)
	require.Len(t, content.Actions, 1)
	assert.Equal(t, &actions.DropTable{Name: "users"}, content.Actions[0])
}
