package actions

import (
	"encoding/json"
	"fmt"

	"github.com/enesj/automig/schema"
)

// Structural migration files store an action list as JSON. Each action is
// wrapped in a kind-tagged envelope so the list can be decoded back into the
// concrete variants.

type envelope struct {
	Kind   Kind            `json:"kind"`
	Action json.RawMessage `json:"action"`
}

// MarshalActions encodes an ordered action list for storage.
func MarshalActions(acts []Action) ([]byte, error) {
	envs := make([]envelope, 0, len(acts))
	for _, a := range acts {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a, err)
		}
		envs = append(envs, envelope{Kind: a.Kind(), Action: raw})
	}
	return json.MarshalIndent(envs, "", "  ")
}

// UnmarshalActions decodes a stored action list.
func UnmarshalActions(data []byte) ([]Action, error) {
	var envs []envelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, fmt.Errorf("decode action list: %w", err)
	}
	acts := make([]Action, 0, len(envs))
	for _, env := range envs {
		var a Action
		switch env.Kind {
		case OpCreateTable:
			a = &CreateTable{}
		case OpDropTable:
			a = &DropTable{}
		case OpAddColumn:
			a = &AddColumn{}
		case OpDropColumn:
			a = &DropColumn{}
		case OpAlterColumn:
			a = &AlterColumn{}
		case OpCreateIndex:
			a = &CreateIndex{}
		case OpDropIndex:
			a = &DropIndex{}
		case OpAlterIndex:
			a = &AlterIndex{}
		case OpCreateType:
			a = &CreateType{}
		case OpDropType:
			a = &DropType{}
		case OpAlterType:
			a = &AlterType{}
		default:
			return nil, fmt.Errorf("unknown action kind %q", env.Kind)
		}
		if err := json.Unmarshal(env.Action, a); err != nil {
			return nil, fmt.Errorf("decode %s action: %w", env.Kind, err)
		}
		acts = append(acts, a)
	}
	return acts, nil
}

// MarshalJSON encodes the delta as {"from": ..., "to": ...}, omitting either
// side when it is the Unset marker.
func (d OptionDelta) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if _, unset := d.From.(unsetValue); !unset {
		out["from"] = d.From
	}
	if _, unset := d.To.(unsetValue); !unset {
		out["to"] = d.To
	}
	return json.Marshal(out)
}

type rawDelta struct {
	From json.RawMessage `json:"from"`
	To   json.RawMessage `json:"to"`
}

// UnmarshalJSON decodes the per-option changes with their concrete value
// types; a generic decode would leave composite values as untyped maps and
// break replay.
func (a *AlterColumn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Table   string              `json:"table"`
		Name    string              `json:"name"`
		Changes map[string]rawDelta `json:"changes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Table, a.Name = raw.Table, raw.Name
	a.Changes = make(map[string]OptionDelta, len(raw.Changes))
	for key, rd := range raw.Changes {
		delta, err := decodeFieldDelta(key, rd)
		if err != nil {
			return fmt.Errorf("column %s.%s: %w", a.Table, a.Name, err)
		}
		a.Changes[key] = delta
	}
	return nil
}

func (a *AlterType) UnmarshalJSON(data []byte) error {
	var raw struct {
		Owner   string              `json:"owner"`
		Name    string              `json:"name"`
		Changes map[string]rawDelta `json:"changes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Owner, a.Name = raw.Owner, raw.Name
	a.Changes = make(map[string]OptionDelta, len(raw.Changes))
	for key, rd := range raw.Changes {
		delta, err := decodeTypeDelta(key, rd)
		if err != nil {
			return fmt.Errorf("type %s: %w", a.Name, err)
		}
		a.Changes[key] = delta
	}
	return nil
}

func decodeFieldDelta(key string, rd rawDelta) (OptionDelta, error) {
	decode := func(raw json.RawMessage) (any, error) {
		// Only an absent key means Unset. A present null is a real value: an
		// explicit NULL default is not the same as having no default.
		if len(raw) == 0 {
			return Unset, nil
		}
		switch key {
		case OptType:
			var t schema.ColumnType
			err := json.Unmarshal(raw, &t)
			return t, err
		case OptNull, OptUnique, OptPrimaryKey:
			var b bool
			err := json.Unmarshal(raw, &b)
			return b, err
		case OptForeignKey:
			var s string
			err := json.Unmarshal(raw, &s)
			return s, err
		case OptDefault:
			var v any
			err := json.Unmarshal(raw, &v)
			return v, err
		default:
			return nil, fmt.Errorf("unknown field option %q", key)
		}
	}
	from, err := decode(rd.From)
	if err != nil {
		return OptionDelta{}, fmt.Errorf("option %q from: %w", key, err)
	}
	to, err := decode(rd.To)
	if err != nil {
		return OptionDelta{}, fmt.Errorf("option %q to: %w", key, err)
	}
	return OptionDelta{From: from, To: to}, nil
}

func decodeTypeDelta(key string, rd rawDelta) (OptionDelta, error) {
	decode := func(raw json.RawMessage) (any, error) {
		if len(raw) == 0 {
			return Unset, nil
		}
		switch key {
		case OptChoices:
			var choices []string
			err := json.Unmarshal(raw, &choices)
			return choices, err
		default:
			return nil, fmt.Errorf("unknown type option %q", key)
		}
	}
	from, err := decode(rd.From)
	if err != nil {
		return OptionDelta{}, fmt.Errorf("option %q from: %w", key, err)
	}
	to, err := decode(rd.To)
	if err != nil {
		return OptionDelta{}, fmt.Errorf("option %q to: %w", key, err)
	}
	return OptionDelta{From: from, To: to}, nil
}
