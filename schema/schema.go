// Package schema defines the declarative snapshot model: a mapping from model
// names to their fields, indexes, custom types and model-level constraints.
// Snapshots are plain values; nothing in this package touches a database.
package schema

import "strings"

// Schema is a full snapshot of a database schema, keyed by model name.
type Schema map[string]Model

// Model is one named schema entity, typically a table.
type Model struct {
	Fields      map[string]Field   `json:"fields,omitempty"`
	Indexes     map[string]Index   `json:"indexes,omitempty"`
	Types       map[string]TypeDef `json:"types,omitempty"`
	Constraints Constraints        `json:"constraints,omitempty"`
}

// ColumnType is a field's type tag plus its parameters. The whole struct is
// compared as one value; a size change is a type change, never a partial
// patch of a parameter list.
type ColumnType struct {
	Name      string `json:"name"`
	Size      int    `json:"size,omitempty"`
	Precision int    `json:"precision,omitempty"`
	Scale     int    `json:"scale,omitempty"`
	// Enum names the custom type when Name is "enum".
	Enum string `json:"enum,omitempty"`
}

// IsEnum reports whether the type references a custom enum type.
func (t ColumnType) IsEnum() bool { return t.Name == "enum" && t.Enum != "" }

// Field is one column specification.
type Field struct {
	Type    ColumnType   `json:"type"`
	Options FieldOptions `json:"options,omitempty"`
}

// FieldOptions holds the column constraints. DefaultSet distinguishes an
// explicit default from no default at all; Default alone cannot, since nil is
// a legal default value.
type FieldOptions struct {
	Null       bool `json:"null,omitempty"`
	Unique     bool `json:"unique,omitempty"`
	PrimaryKey bool `json:"primary_key,omitempty"`
	Default    any  `json:"default,omitempty"`
	DefaultSet bool `json:"default_set,omitempty"`
	// ForeignKey references a target as "<model>/<field>", empty when none.
	ForeignKey string `json:"foreign_key,omitempty"`
}

// ForeignKeyModel returns the referenced model name, or "" when the field has
// no foreign key.
func (o FieldOptions) ForeignKeyModel() string {
	if o.ForeignKey == "" {
		return ""
	}
	model, _, _ := strings.Cut(o.ForeignKey, "/")
	return model
}

// Index is one index specification.
type Index struct {
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
	Method string   `json:"method,omitempty"`
	Where  string   `json:"where,omitempty"`
}

// Equal reports whether two index specifications are identical.
func (i Index) Equal(other Index) bool {
	if i.Unique != other.Unique || i.Method != other.Method || i.Where != other.Where {
		return false
	}
	if len(i.Fields) != len(other.Fields) {
		return false
	}
	for n, f := range i.Fields {
		if other.Fields[n] != f {
			return false
		}
	}
	return true
}

// TypeDef is a custom type owned by a model, e.g. an enum with its choices.
type TypeDef struct {
	Kind    string   `json:"kind"`
	Choices []string `json:"choices,omitempty"`
}

// Equal reports whether two type definitions are identical.
func (t TypeDef) Equal(other TypeDef) bool {
	if t.Kind != other.Kind || len(t.Choices) != len(other.Choices) {
		return false
	}
	for n, c := range t.Choices {
		if other.Choices[n] != c {
			return false
		}
	}
	return true
}

// Constraints holds model-level constraints.
type Constraints struct {
	// Unique lists composite-unique field sets.
	Unique [][]string `json:"unique,omitempty"`
}

// Equal reports whether two constraint sets are identical.
func (c Constraints) Equal(other Constraints) bool {
	if len(c.Unique) != len(other.Unique) {
		return false
	}
	for n, set := range c.Unique {
		if len(set) != len(other.Unique[n]) {
			return false
		}
		for m, f := range set {
			if other.Unique[n][m] != f {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy of the snapshot. Replaying actions must never
// mutate the caller's snapshot.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for name, m := range s {
		out[name] = m.Clone()
	}
	return out
}

// Clone returns a deep copy of the model.
func (m Model) Clone() Model {
	out := Model{}
	if m.Fields != nil {
		out.Fields = make(map[string]Field, len(m.Fields))
		for n, f := range m.Fields {
			out.Fields[n] = f
		}
	}
	if m.Indexes != nil {
		out.Indexes = make(map[string]Index, len(m.Indexes))
		for n, i := range m.Indexes {
			i.Fields = append([]string(nil), i.Fields...)
			out.Indexes[n] = i
		}
	}
	if m.Types != nil {
		out.Types = make(map[string]TypeDef, len(m.Types))
		for n, t := range m.Types {
			t.Choices = append([]string(nil), t.Choices...)
			out.Types[n] = t
		}
	}
	if m.Constraints.Unique != nil {
		out.Constraints.Unique = make([][]string, len(m.Constraints.Unique))
		for n, set := range m.Constraints.Unique {
			out.Constraints.Unique[n] = append([]string(nil), set...)
		}
	}
	return out
}
