package actions

import (
	"fmt"

	"github.com/enesj/automig/schema"
)

// Apply replays an ordered action list over a snapshot and returns the
// resulting snapshot. The input snapshot is never mutated. Replay is how
// historical schema state is reconstructed when computing backward
// migrations.
func Apply(s schema.Schema, acts []Action) (schema.Schema, error) {
	out := s.Clone()
	if out == nil {
		out = schema.Schema{}
	}
	for _, a := range acts {
		if err := a.apply(out); err != nil {
			return nil, fmt.Errorf("replay %s: %w", a, err)
		}
	}
	return out, nil
}

func (a *CreateTable) apply(s schema.Schema) error {
	// A CreateType for one of the model's own types is ordered before the
	// table creation and leaves a shell model holding only Types.
	shell, ok := s[a.Name]
	if ok && len(shell.Fields) > 0 {
		return fmt.Errorf("model %q already exists", a.Name)
	}
	m := schema.Model{Fields: map[string]schema.Field{}, Types: shell.Types, Constraints: a.Constraints}
	for name, f := range a.Fields {
		m.Fields[name] = f
	}
	s[a.Name] = m.Clone()
	return nil
}

func (a *DropTable) apply(s schema.Schema) error {
	if _, ok := s[a.Name]; !ok {
		return fmt.Errorf("model %q does not exist", a.Name)
	}
	delete(s, a.Name)
	return nil
}

func (a *AddColumn) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	if _, ok := m.Fields[a.Name]; ok {
		return fmt.Errorf("field %q already exists on %q", a.Name, a.Table)
	}
	if m.Fields == nil {
		m.Fields = map[string]schema.Field{}
	}
	m.Fields[a.Name] = a.Field
	s[a.Table] = m
	return nil
}

func (a *DropColumn) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	if _, ok := m.Fields[a.Name]; !ok {
		return fmt.Errorf("field %q does not exist on %q", a.Name, a.Table)
	}
	delete(m.Fields, a.Name)
	return nil
}

func (a *AlterColumn) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	f, ok := m.Fields[a.Name]
	if !ok {
		return fmt.Errorf("field %q does not exist on %q", a.Name, a.Table)
	}
	for key, delta := range a.Changes {
		if err := applyFieldOption(&f, key, delta.To); err != nil {
			return fmt.Errorf("field %s.%s: %w", a.Table, a.Name, err)
		}
	}
	m.Fields[a.Name] = f
	return nil
}

func applyFieldOption(f *schema.Field, key string, to any) error {
	switch key {
	case OptType:
		t, ok := to.(schema.ColumnType)
		if !ok {
			return fmt.Errorf("option %q: unexpected value %T", key, to)
		}
		f.Type = t
	case OptNull, OptUnique, OptPrimaryKey:
		b, ok := to.(bool)
		if !ok {
			return fmt.Errorf("option %q: unexpected value %T", key, to)
		}
		switch key {
		case OptNull:
			f.Options.Null = b
		case OptUnique:
			f.Options.Unique = b
		case OptPrimaryKey:
			f.Options.PrimaryKey = b
		}
	case OptDefault:
		if _, unset := to.(unsetValue); unset {
			f.Options.Default, f.Options.DefaultSet = nil, false
		} else {
			f.Options.Default, f.Options.DefaultSet = to, true
		}
	case OptForeignKey:
		if _, unset := to.(unsetValue); unset {
			f.Options.ForeignKey = ""
			return nil
		}
		fk, ok := to.(string)
		if !ok {
			return fmt.Errorf("option %q: unexpected value %T", key, to)
		}
		f.Options.ForeignKey = fk
	default:
		return fmt.Errorf("unknown field option %q", key)
	}
	return nil
}

func (a *CreateIndex) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	if _, ok := m.Indexes[a.Name]; ok {
		return fmt.Errorf("index %q already exists on %q", a.Name, a.Table)
	}
	if m.Indexes == nil {
		m.Indexes = map[string]schema.Index{}
	}
	m.Indexes[a.Name] = a.Index
	s[a.Table] = m
	return nil
}

func (a *DropIndex) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	if _, ok := m.Indexes[a.Name]; !ok {
		return fmt.Errorf("index %q does not exist on %q", a.Name, a.Table)
	}
	delete(m.Indexes, a.Name)
	return nil
}

func (a *AlterIndex) apply(s schema.Schema) error {
	m, ok := s[a.Table]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Table)
	}
	if _, ok := m.Indexes[a.Name]; !ok {
		return fmt.Errorf("index %q does not exist on %q", a.Name, a.Table)
	}
	m.Indexes[a.Name] = a.Index
	return nil
}

func (a *CreateType) apply(s schema.Schema) error {
	// Type creation precedes the owning table's creation, so a missing
	// owner gets a shell entry the CreateTable replay fills in.
	m, ok := s[a.Owner]
	if !ok {
		m = schema.Model{}
	}
	if _, ok := m.Types[a.Name]; ok {
		return fmt.Errorf("type %q already exists on %q", a.Name, a.Owner)
	}
	if m.Types == nil {
		m.Types = map[string]schema.TypeDef{}
	}
	m.Types[a.Name] = a.Def
	s[a.Owner] = m
	return nil
}

func (a *DropType) apply(s schema.Schema) error {
	m, ok := s[a.Owner]
	if !ok {
		// The owning model may already be gone: a dropped model cascades to
		// its types, and the table drop is ordered first.
		return nil
	}
	delete(m.Types, a.Name)
	return nil
}

func (a *AlterType) apply(s schema.Schema) error {
	m, ok := s[a.Owner]
	if !ok {
		return fmt.Errorf("model %q does not exist", a.Owner)
	}
	t, ok := m.Types[a.Name]
	if !ok {
		return fmt.Errorf("type %q does not exist on %q", a.Name, a.Owner)
	}
	for key, delta := range a.Changes {
		switch key {
		case OptChoices:
			choices, ok := delta.To.([]string)
			if !ok {
				return fmt.Errorf("type %s: option %q: unexpected value %T", a.Name, key, delta.To)
			}
			t.Choices = append([]string(nil), choices...)
		default:
			return fmt.Errorf("type %s: unknown option %q", a.Name, key)
		}
	}
	m.Types[a.Name] = t
	return nil
}
