package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/schema"
)

func testHistory() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "init",
			Kind:    KindAuto,
			Actions: []actions.Action{
				&actions.CreateTable{Name: "users", Fields: map[string]schema.Field{
					"id": {Type: schema.ColumnType{Name: "serial"}, Options: schema.FieldOptions{PrimaryKey: true}},
				}},
			},
		},
		{
			Version: 2,
			Name:    "add_email",
			Kind:    KindAuto,
			Actions: []actions.Action{
				&actions.AddColumn{Table: "users", Name: "email", Field: schema.Field{Type: schema.ColumnType{Name: "text"}}},
				&actions.CreateIndex{Table: "users", Name: "users_email_idx", Index: schema.Index{Fields: []string{"email"}, Unique: true}},
			},
		},
		{
			Version: 3,
			Name:    "audit",
			Kind:    KindTrigger,
			SQL:     "-- FORWARD\nCREATE TRIGGER audit;\n-- BACKWARD\nDROP TRIGGER audit;\n",
		},
	}
}

func TestResolveAutoForward(t *testing.T) {
	h := testHistory()
	r := NewResolver(h)

	content, err := r.Resolve(h[0], Forward)
	require.NoError(t, err)
	assert.Equal(t, h[0].Actions, content.Actions)
	assert.Empty(t, content.SQL)
}

func TestResolveSQLKindsBothDirections(t *testing.T) {
	r := NewResolver(nil)
	for _, kind := range []Kind{KindSQL, KindFunction, KindTrigger, KindPolicy, KindView} {
		m := Migration{Version: 9, Name: "x", Kind: kind, SQL: "-- FORWARD\nSELECT 1;\n-- BACKWARD\nSELECT 2;"}

		fwd, err := r.Resolve(m, Forward)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1;", fwd.SQL, "kind %s", kind)

		bwd, err := r.Resolve(m, Backward)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 2;", bwd.SQL, "kind %s", kind)
	}
}

func TestResolveMissingBackwardSectionIsEmpty(t *testing.T) {
	r := NewResolver(nil)
	m := Migration{Version: 9, Name: "x", Kind: KindSQL, SQL: "CREATE VIEW v AS SELECT 1;"}

	content, err := r.Resolve(m, Backward)
	require.NoError(t, err)
	assert.Empty(t, content.SQL)
}

func TestResolveUnknownKind(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve(Migration{Kind: Kind("graphql")}, Forward)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graphql")
}

func TestBackwardAutoInvertsCreate(t *testing.T) {
	h := testHistory()
	r := NewResolver(h)

	content, err := r.Resolve(h[0], Backward)
	require.NoError(t, err)
	require.Len(t, content.Actions, 1)
	assert.Equal(t, &actions.DropTable{Name: "users"}, content.Actions[0])
}

func TestBackwardAutoInvertsColumnAndIndex(t *testing.T) {
	h := testHistory()
	r := NewResolver(h)

	content, err := r.Resolve(h[1], Backward)
	require.NoError(t, err)
	require.Equal(t, []actions.Action{
		&actions.DropIndex{Table: "users", Name: "users_email_idx"},
		&actions.DropColumn{Table: "users", Name: "email"},
	}, content.Actions)
}

func TestBackwardAutoRoundTripsThroughApply(t *testing.T) {
	h := testHistory()
	r := NewResolver(h)

	before, err := r.SchemaAt(1)
	require.NoError(t, err)
	after, err := actions.Apply(before, h[1].Actions)
	require.NoError(t, err)

	content, err := r.Resolve(h[1], Backward)
	require.NoError(t, err)

	restored, err := actions.Apply(after, content.Actions)
	require.NoError(t, err)
	assert.Equal(t, before, restored)
}

func TestBackwardAutoMissingHistory(t *testing.T) {
	r := NewResolver(nil)
	orphan := Migration{Version: 7, Name: "orphan", Kind: KindAuto}

	_, err := r.Resolve(orphan, Backward)
	require.Error(t, err)

	var noHist *NoHistoryError
	require.True(t, errors.As(err, &noHist))
	assert.Equal(t, 7, noHist.Version)
}

func TestSchemaAt(t *testing.T) {
	r := NewResolver(testHistory())

	s0, err := r.SchemaAt(0)
	require.NoError(t, err)
	assert.Empty(t, s0)

	s1, err := r.SchemaAt(1)
	require.NoError(t, err)
	assert.Len(t, s1["users"].Fields, 1)

	s2, err := r.SchemaAt(2)
	require.NoError(t, err)
	assert.Len(t, s2["users"].Fields, 2)
	assert.Contains(t, s2["users"].Indexes, "users_email_idx")

	// Trigger migrations do not change the tracked structural snapshot.
	s3, err := r.SchemaAt(3)
	require.NoError(t, err)
	assert.Equal(t, s2, s3)

	_, err = r.SchemaAt(42)
	var noHist *NoHistoryError
	require.True(t, errors.As(err, &noHist))
	assert.Equal(t, 42, noHist.Version)
}

func TestSnapshotCache(t *testing.T) {
	cache := NewSnapshotCache()
	r := NewResolver(testHistory()).WithCache(cache)

	s2, err := r.SchemaAt(2)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	cached, ok := cache.Get(2)
	require.True(t, ok)
	assert.Equal(t, s2, cached)

	// Mutating a cache result must not poison later reads.
	delete(cached, "users")
	again, err := r.SchemaAt(2)
	require.NoError(t, err)
	assert.Equal(t, s2, again)
}
