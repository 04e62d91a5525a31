package diff

import (
	"sort"

	"github.com/enesj/automig/internal/debug"
	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/schema"
)

// Classify turns a diff result into a flat, unordered action list. Ordering
// is the planner's job.
//
// A model created in its entirety yields one CreateTable with the complete
// field map and no per-field actions; its indexes and custom types are
// separate schema objects and get their own create actions. A model dropped
// in its entirety yields one DropTable; column drops are implied and never
// enumerated, while index and type drops cascade explicitly.
func Classify(old, new schema.Schema, r *Result) []actions.Action {
	var acts []actions.Action
	for _, name := range modelNames(r) {
		rem := r.Removed[name]
		if rem.All {
			oldModel := old[name]
			acts = append(acts, classifyIndexes(name, oldModel, schema.Model{}, nil, rem, true)...)
			acts = append(acts, &actions.DropTable{Name: name})
			acts = append(acts, classifyTypes(name, oldModel, schema.Model{}, nil, rem, true)...)
			continue
		}
		delta := r.Altered[name]
		newModel := new[name]
		oldModel, existed := old[name]
		if !existed {
			acts = append(acts, &actions.CreateTable{
				Name:        name,
				Fields:      newModel.Fields,
				Constraints: newModel.Constraints,
			})
			acts = append(acts, classifyTypes(name, oldModel, newModel, delta.Types, rem, false)...)
			acts = append(acts, classifyIndexes(name, oldModel, newModel, delta.Indexes, rem, false)...)
			continue
		}
		acts = append(acts, classifyFields(name, oldModel, newModel, delta.Fields, rem)...)
		acts = append(acts, classifyIndexes(name, oldModel, newModel, delta.Indexes, rem, false)...)
		acts = append(acts, classifyTypes(name, oldModel, newModel, delta.Types, rem, false)...)
		if delta.Constraints != nil {
			// Composite-unique changes have no action of their own; they are
			// surfaced through the diff result for downstream validation.
			debug.Warn("model constraints changed without an action mapping", "model", name)
		}
	}
	debug.Debug("classified diff", "actions", len(acts))
	return acts
}

func classifyFields(model string, oldM, newM schema.Model, deltas map[string]FieldDelta, rem ModelRemoval) []actions.Action {
	var acts []actions.Action
	for _, name := range sortedUnion(keys(deltas), keys(rem.Fields)) {
		if _, dropped := rem.Fields[name]; dropped {
			acts = append(acts, &actions.DropColumn{Table: model, Name: name})
			continue
		}
		oldField, existed := oldM.Fields[name]
		if !existed {
			acts = append(acts, &actions.AddColumn{Table: model, Name: name, Field: newM.Fields[name]})
			continue
		}
		acts = append(acts, &actions.AlterColumn{
			Table:   model,
			Name:    name,
			Changes: optionChanges(oldField, newM.Fields[name], deltas[name]),
		})
	}
	return acts
}

// optionChanges builds per-option before/after pairs. The To side is always
// read from the complete new field, never from the pruned diff: a composite
// value in the delta may be partial.
func optionChanges(oldField, newField schema.Field, fd FieldDelta) map[string]actions.OptionDelta {
	changes := make(map[string]actions.OptionDelta, len(fd))
	for key := range fd {
		switch key {
		case actions.OptType:
			changes[key] = actions.OptionDelta{From: oldField.Type, To: newField.Type}
		case actions.OptNull:
			changes[key] = actions.OptionDelta{From: oldField.Options.Null, To: newField.Options.Null}
		case actions.OptUnique:
			changes[key] = actions.OptionDelta{From: oldField.Options.Unique, To: newField.Options.Unique}
		case actions.OptPrimaryKey:
			changes[key] = actions.OptionDelta{From: oldField.Options.PrimaryKey, To: newField.Options.PrimaryKey}
		case actions.OptDefault:
			changes[key] = actions.OptionDelta{
				From: defaultOr(oldField.Options),
				To:   defaultOr(newField.Options),
			}
		case actions.OptForeignKey:
			changes[key] = actions.OptionDelta{
				From: foreignKeyOr(oldField.Options),
				To:   foreignKeyOr(newField.Options),
			}
		}
	}
	return changes
}

func defaultOr(o schema.FieldOptions) any {
	if !o.DefaultSet {
		return actions.Unset
	}
	return o.Default
}

func foreignKeyOr(o schema.FieldOptions) any {
	if o.ForeignKey == "" {
		return actions.Unset
	}
	return o.ForeignKey
}

func classifyIndexes(model string, oldM, newM schema.Model, deltas map[string]schema.Index, rem ModelRemoval, modelDropped bool) []actions.Action {
	var acts []actions.Action
	if modelDropped {
		// Cascade: every index of a dropped model is dropped. The planner's
		// default order places these before the DropTable.
		for _, name := range sortedUnion(keys(oldM.Indexes), nil) {
			acts = append(acts, &actions.DropIndex{Table: model, Name: name})
		}
		return acts
	}
	for _, name := range sortedUnion(keys(deltas), keys(rem.Indexes)) {
		if _, dropped := rem.Indexes[name]; dropped {
			acts = append(acts, &actions.DropIndex{Table: model, Name: name})
			continue
		}
		if _, existed := oldM.Indexes[name]; !existed {
			acts = append(acts, &actions.CreateIndex{Table: model, Name: name, Index: newM.Indexes[name]})
			continue
		}
		acts = append(acts, &actions.AlterIndex{Table: model, Name: name, Index: newM.Indexes[name]})
	}
	return acts
}

func classifyTypes(model string, oldM, newM schema.Model, deltas map[string]TypeDelta, rem ModelRemoval, modelDropped bool) []actions.Action {
	var acts []actions.Action
	if modelDropped {
		// Cascade: a dropped model drops every type it owns, even though the
		// type-level diff never marked them individually.
		for _, name := range sortedUnion(keys(oldM.Types), nil) {
			acts = append(acts, &actions.DropType{Owner: model, Name: name})
		}
		return acts
	}
	for _, name := range sortedUnion(keys(deltas), keys(rem.Types)) {
		if _, dropped := rem.Types[name]; dropped {
			acts = append(acts, &actions.DropType{Owner: model, Name: name})
			continue
		}
		oldType, existed := oldM.Types[name]
		if !existed {
			acts = append(acts, &actions.CreateType{Owner: model, Name: name, Def: newM.Types[name]})
			continue
		}
		acts = append(acts, &actions.AlterType{
			Owner: model,
			Name:  name,
			Changes: map[string]actions.OptionDelta{
				actions.OptChoices: {From: oldType.Choices, To: newM.Types[name].Choices},
			},
		})
	}
	return acts
}

func modelNames(r *Result) []string {
	return sortedUnion(keys(r.Altered), keys(r.Removed))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedUnion(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, k := range append(a, b...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
