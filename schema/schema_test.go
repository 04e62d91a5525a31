package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	s := Schema{
		"users": {
			Fields: map[string]Field{
				"id":   {Type: ColumnType{Name: "serial"}, Options: FieldOptions{PrimaryKey: true}},
				"name": {Type: ColumnType{Name: "varchar", Size: 100}},
			},
			Indexes: map[string]Index{
				"users_name_idx": {Fields: []string{"name"}},
			},
			Types: map[string]TypeDef{
				"role": {Kind: "enum", Choices: []string{"admin", "member"}},
			},
			Constraints: Constraints{Unique: [][]string{{"name"}}},
		},
	}

	c := s.Clone()
	require.Equal(t, s, c)

	c["users"].Fields["email"] = Field{Type: ColumnType{Name: "text"}}
	c["users"].Indexes["users_name_idx"].Fields[0] = "email"
	c["users"].Types["role"].Choices[0] = "owner"
	c["users"].Constraints.Unique[0][0] = "email"

	assert.NotContains(t, s["users"].Fields, "email")
	assert.Equal(t, "name", s["users"].Indexes["users_name_idx"].Fields[0])
	assert.Equal(t, "admin", s["users"].Types["role"].Choices[0])
	assert.Equal(t, "name", s["users"].Constraints.Unique[0][0])
}

func TestForeignKeyModel(t *testing.T) {
	assert.Equal(t, "users", FieldOptions{ForeignKey: "users/id"}.ForeignKeyModel())
	assert.Equal(t, "", FieldOptions{}.ForeignKeyModel())
}

func TestColumnTypeIsEnum(t *testing.T) {
	assert.True(t, ColumnType{Name: "enum", Enum: "role"}.IsEnum())
	assert.False(t, ColumnType{Name: "enum"}.IsEnum())
	assert.False(t, ColumnType{Name: "varchar", Size: 100}.IsEnum())
}

func TestIndexEqual(t *testing.T) {
	a := Index{Fields: []string{"a", "b"}, Unique: true, Method: "btree"}
	assert.True(t, a.Equal(Index{Fields: []string{"a", "b"}, Unique: true, Method: "btree"}))
	assert.False(t, a.Equal(Index{Fields: []string{"b", "a"}, Unique: true, Method: "btree"}))
	assert.False(t, a.Equal(Index{Fields: []string{"a", "b"}, Method: "btree"}))
}

func TestTypeDefEqual(t *testing.T) {
	a := TypeDef{Kind: "enum", Choices: []string{"x", "y"}}
	assert.True(t, a.Equal(TypeDef{Kind: "enum", Choices: []string{"x", "y"}}))
	assert.False(t, a.Equal(TypeDef{Kind: "enum", Choices: []string{"y", "x"}}))
	assert.False(t, a.Equal(TypeDef{Kind: "enum", Choices: []string{"x"}}))
}
