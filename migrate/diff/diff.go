// Package diff computes the two-sided structural difference between two
// schema snapshots and classifies it into migration actions.
package diff

import (
	"reflect"

	"github.com/enesj/automig/internal/debug"
	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/schema"
)

// Tombstone marks a removed entity on the removal side of a diff. It is a
// dedicated type so no legitimate schema value can ever be mistaken for a
// deletion.
type Tombstone struct{}

// Result is the two-sided diff: alterations hold added or changed values
// pruned to what differs, removals hold tombstones at the position of
// anything deleted. A path present on both sides is a removal.
type Result struct {
	Altered map[string]ModelDelta
	Removed map[string]ModelRemoval
}

// ModelDelta is the pruned per-model alteration map.
type ModelDelta struct {
	Fields  map[string]FieldDelta
	Indexes map[string]schema.Index
	Types   map[string]TypeDelta
	// Constraints is set when the model-level constraints changed.
	Constraints *schema.Constraints
}

func (d ModelDelta) empty() bool {
	return len(d.Fields) == 0 && len(d.Indexes) == 0 && len(d.Types) == 0 && d.Constraints == nil
}

// FieldDelta maps changed option keys to their new values. The value under
// actions.OptType is always the complete new ColumnType; consumers must never
// reassemble a composite type from a partial patch.
type FieldDelta map[string]any

// TypeDelta maps changed type option keys to their new values.
type TypeDelta map[string]any

// ModelRemoval marks removed entities within (or including) one model.
type ModelRemoval struct {
	// All is set when the model itself was removed.
	All     bool
	Fields  map[string]Tombstone
	Indexes map[string]Tombstone
	Types   map[string]Tombstone
}

func (r ModelRemoval) empty() bool {
	return !r.All && len(r.Fields) == 0 && len(r.Indexes) == 0 && len(r.Types) == 0
}

// Compute diffs two snapshots. For every model present in either snapshot it
// records the minimal nested difference, recursing to the option level so
// alter actions can report per-option before/after values.
func Compute(old, new schema.Schema) *Result {
	r := &Result{
		Altered: map[string]ModelDelta{},
		Removed: map[string]ModelRemoval{},
	}
	for name, newModel := range new {
		oldModel, ok := old[name]
		if !ok {
			r.Altered[name] = fullModelDelta(newModel)
			continue
		}
		if d := modelDelta(oldModel, newModel); !d.empty() {
			r.Altered[name] = d
		}
	}
	for name, oldModel := range old {
		newModel, ok := new[name]
		if !ok {
			r.Removed[name] = ModelRemoval{
				All:     true,
				Fields:  tombstones(oldModel.Fields),
				Indexes: tombstones(oldModel.Indexes),
				Types:   tombstones(oldModel.Types),
			}
			continue
		}
		rem := ModelRemoval{
			Fields:  missing(oldModel.Fields, newModel.Fields),
			Indexes: missing(oldModel.Indexes, newModel.Indexes),
			Types:   missing(oldModel.Types, newModel.Types),
		}
		if !rem.empty() {
			r.Removed[name] = rem
		}
	}
	debug.Debug("computed structural diff",
		"models_altered", len(r.Altered), "models_removed", len(r.Removed))
	return r
}

func fullModelDelta(m schema.Model) ModelDelta {
	d := ModelDelta{
		Fields:  make(map[string]FieldDelta, len(m.Fields)),
		Indexes: make(map[string]schema.Index, len(m.Indexes)),
		Types:   make(map[string]TypeDelta, len(m.Types)),
	}
	for name, f := range m.Fields {
		d.Fields[name] = fullFieldDelta(f)
	}
	for name, i := range m.Indexes {
		d.Indexes[name] = i
	}
	for name, t := range m.Types {
		d.Types[name] = fullTypeDelta(t)
	}
	if len(m.Constraints.Unique) > 0 {
		c := m.Constraints
		d.Constraints = &c
	}
	return d
}

func modelDelta(old, new schema.Model) ModelDelta {
	d := ModelDelta{
		Fields:  map[string]FieldDelta{},
		Indexes: map[string]schema.Index{},
		Types:   map[string]TypeDelta{},
	}
	for name, newF := range new.Fields {
		oldF, ok := old.Fields[name]
		if !ok {
			d.Fields[name] = fullFieldDelta(newF)
			continue
		}
		if fd := fieldDelta(oldF, newF); len(fd) > 0 {
			d.Fields[name] = fd
		}
	}
	for name, newI := range new.Indexes {
		if oldI, ok := old.Indexes[name]; !ok || !oldI.Equal(newI) {
			d.Indexes[name] = newI
		}
	}
	for name, newT := range new.Types {
		oldT, ok := old.Types[name]
		if !ok {
			d.Types[name] = fullTypeDelta(newT)
			continue
		}
		if td := typeDelta(oldT, newT); len(td) > 0 {
			d.Types[name] = td
		}
	}
	if !old.Constraints.Equal(new.Constraints) {
		c := new.Constraints
		d.Constraints = &c
	}
	return d
}

func fullFieldDelta(f schema.Field) FieldDelta {
	fd := FieldDelta{actions.OptType: f.Type}
	if f.Options.Null {
		fd[actions.OptNull] = true
	}
	if f.Options.Unique {
		fd[actions.OptUnique] = true
	}
	if f.Options.PrimaryKey {
		fd[actions.OptPrimaryKey] = true
	}
	if f.Options.DefaultSet {
		fd[actions.OptDefault] = f.Options.Default
	}
	if f.Options.ForeignKey != "" {
		fd[actions.OptForeignKey] = f.Options.ForeignKey
	}
	return fd
}

func fieldDelta(old, new schema.Field) FieldDelta {
	fd := FieldDelta{}
	if old.Type != new.Type {
		fd[actions.OptType] = new.Type
	}
	if old.Options.Null != new.Options.Null {
		fd[actions.OptNull] = new.Options.Null
	}
	if old.Options.Unique != new.Options.Unique {
		fd[actions.OptUnique] = new.Options.Unique
	}
	if old.Options.PrimaryKey != new.Options.PrimaryKey {
		fd[actions.OptPrimaryKey] = new.Options.PrimaryKey
	}
	if old.Options.DefaultSet != new.Options.DefaultSet ||
		(new.Options.DefaultSet && !defaultsEqual(old.Options.Default, new.Options.Default)) {
		if new.Options.DefaultSet {
			fd[actions.OptDefault] = new.Options.Default
		} else {
			fd[actions.OptDefault] = actions.Unset
		}
	}
	if old.Options.ForeignKey != new.Options.ForeignKey {
		if new.Options.ForeignKey != "" {
			fd[actions.OptForeignKey] = new.Options.ForeignKey
		} else {
			fd[actions.OptForeignKey] = actions.Unset
		}
	}
	return fd
}

func fullTypeDelta(t schema.TypeDef) TypeDelta {
	return TypeDelta{actions.OptChoices: t.Choices}
}

func typeDelta(old, new schema.TypeDef) TypeDelta {
	td := TypeDelta{}
	if !old.Equal(new) {
		td[actions.OptChoices] = new.Choices
	}
	return td
}

func defaultsEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func tombstones[V any](m map[string]V) map[string]Tombstone {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]Tombstone, len(m))
	for name := range m {
		out[name] = Tombstone{}
	}
	return out
}

func missing[V any](old, new map[string]V) map[string]Tombstone {
	var out map[string]Tombstone
	for name := range old {
		if _, ok := new[name]; !ok {
			if out == nil {
				out = map[string]Tombstone{}
			}
			out[name] = Tombstone{}
		}
	}
	return out
}
