// Package actions defines the atomic migration operations produced by the
// differ and consumed by SQL renderers: create/alter/drop at table, column,
// index and type granularity.
package actions

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/enesj/automig/schema"
)

// Kind tags one action variant.
type Kind string

const (
	OpCreateTable Kind = "CreateTable"
	OpDropTable   Kind = "DropTable"
	OpAddColumn   Kind = "AddColumn"
	OpDropColumn  Kind = "DropColumn"
	OpAlterColumn Kind = "AlterColumn"
	OpCreateIndex Kind = "CreateIndex"
	OpDropIndex   Kind = "DropIndex"
	OpAlterIndex  Kind = "AlterIndex"
	OpCreateType  Kind = "CreateType"
	OpDropType    Kind = "DropType"
	OpAlterType   Kind = "AlterType"
)

// Option keys used in per-option change maps.
const (
	OptType       = "type"
	OptNull       = "null"
	OptUnique     = "unique"
	OptPrimaryKey = "primary_key"
	OptDefault    = "default"
	OptForeignKey = "foreign_key"
	OptChoices    = "choices"
)

// unsetValue marks an option that had no previous value. It is a separate
// marker from the diff's removal tombstone: "never had a value" and "this
// entity was deleted" must not be conflated.
type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// Unset is the empty-option marker used as the From side of an OptionDelta.
var Unset = unsetValue{}

// OptionDelta records one option's before and after values.
type OptionDelta struct {
	From any
	To   any
}

// Action is one atomic, typed migration operation.
type Action interface {
	Kind() Kind
	// Model returns the model the action targets.
	Model() string
	// Entity returns the field, index or type name, or "" for table-level
	// actions.
	Entity() string
	String() string

	apply(s schema.Schema) error
}

// CreateTable creates a model with its complete field map. Indexes and custom
// types are separate schema objects and carried by their own actions.
type CreateTable struct {
	Name        string                  `json:"name"`
	Fields      map[string]schema.Field `json:"fields"`
	Constraints schema.Constraints      `json:"constraints,omitempty"`
}

func (a *CreateTable) Kind() Kind     { return OpCreateTable }
func (a *CreateTable) Model() string  { return a.Name }
func (a *CreateTable) Entity() string { return "" }
func (a *CreateTable) String() string { return fmt.Sprintf("create table %s", a.Name) }

// DropTable drops a model. Column and index drops are implied and never
// enumerated separately.
type DropTable struct {
	Name string `json:"name"`
}

func (a *DropTable) Kind() Kind     { return OpDropTable }
func (a *DropTable) Model() string  { return a.Name }
func (a *DropTable) Entity() string { return "" }
func (a *DropTable) String() string { return fmt.Sprintf("drop table %s", a.Name) }

// AddColumn adds a field with its full new specification.
type AddColumn struct {
	Table string       `json:"table"`
	Name  string       `json:"name"`
	Field schema.Field `json:"field"`
}

func (a *AddColumn) Kind() Kind     { return OpAddColumn }
func (a *AddColumn) Model() string  { return a.Table }
func (a *AddColumn) Entity() string { return a.Name }
func (a *AddColumn) String() string { return fmt.Sprintf("add column %s.%s", a.Table, a.Name) }

// DropColumn removes a field.
type DropColumn struct {
	Table string `json:"table"`
	Name  string `json:"name"`
}

func (a *DropColumn) Kind() Kind     { return OpDropColumn }
func (a *DropColumn) Model() string  { return a.Table }
func (a *DropColumn) Entity() string { return a.Name }
func (a *DropColumn) String() string { return fmt.Sprintf("drop column %s.%s", a.Table, a.Name) }

// AlterColumn changes one or more options of a field. Changes maps option
// keys to before/after pairs; the To side always holds the complete new
// value taken from the new snapshot.
type AlterColumn struct {
	Table   string                 `json:"table"`
	Name    string                 `json:"name"`
	Changes map[string]OptionDelta `json:"changes"`
}

func (a *AlterColumn) Kind() Kind     { return OpAlterColumn }
func (a *AlterColumn) Model() string  { return a.Table }
func (a *AlterColumn) Entity() string { return a.Name }
func (a *AlterColumn) String() string {
	return fmt.Sprintf("alter column %s.%s (%s)", a.Table, a.Name, strings.Join(sortedKeys(a.Changes), ", "))
}

// CreateIndex creates an index with its full specification.
type CreateIndex struct {
	Table string       `json:"table"`
	Name  string       `json:"name"`
	Index schema.Index `json:"index"`
}

func (a *CreateIndex) Kind() Kind     { return OpCreateIndex }
func (a *CreateIndex) Model() string  { return a.Table }
func (a *CreateIndex) Entity() string { return a.Name }
func (a *CreateIndex) String() string { return fmt.Sprintf("create index %s on %s", a.Name, a.Table) }

// DropIndex removes an index.
type DropIndex struct {
	Table string `json:"table"`
	Name  string `json:"name"`
}

func (a *DropIndex) Kind() Kind     { return OpDropIndex }
func (a *DropIndex) Model() string  { return a.Table }
func (a *DropIndex) Entity() string { return a.Name }
func (a *DropIndex) String() string { return fmt.Sprintf("drop index %s on %s", a.Name, a.Table) }

// AlterIndex replaces an index definition wholesale; indexes have no
// per-option alter semantics in SQL.
type AlterIndex struct {
	Table string       `json:"table"`
	Name  string       `json:"name"`
	Index schema.Index `json:"index"`
}

func (a *AlterIndex) Kind() Kind     { return OpAlterIndex }
func (a *AlterIndex) Model() string  { return a.Table }
func (a *AlterIndex) Entity() string { return a.Name }
func (a *AlterIndex) String() string { return fmt.Sprintf("alter index %s on %s", a.Name, a.Table) }

// CreateType creates a custom type owned by a model.
type CreateType struct {
	Owner string         `json:"owner"`
	Name  string         `json:"name"`
	Def   schema.TypeDef `json:"def"`
}

func (a *CreateType) Kind() Kind     { return OpCreateType }
func (a *CreateType) Model() string  { return a.Owner }
func (a *CreateType) Entity() string { return a.Name }
func (a *CreateType) String() string { return fmt.Sprintf("create type %s (model %s)", a.Name, a.Owner) }

// DropType removes a custom type.
type DropType struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (a *DropType) Kind() Kind     { return OpDropType }
func (a *DropType) Model() string  { return a.Owner }
func (a *DropType) Entity() string { return a.Name }
func (a *DropType) String() string { return fmt.Sprintf("drop type %s (model %s)", a.Name, a.Owner) }

// AlterType changes a custom type's options, e.g. an enum's choices.
type AlterType struct {
	Owner   string                 `json:"owner"`
	Name    string                 `json:"name"`
	Changes map[string]OptionDelta `json:"changes"`
}

func (a *AlterType) Kind() Kind     { return OpAlterType }
func (a *AlterType) Model() string  { return a.Owner }
func (a *AlterType) Entity() string { return a.Name }
func (a *AlterType) String() string {
	return fmt.Sprintf("alter type %s (model %s)", a.Name, a.Owner)
}

// kindRank defines the default execution order between action kinds when the
// dependency graph imposes none: drops first (indexes, columns, tables, then
// the types they used), then type and table creation, then column and index
// work.
var kindRank = map[Kind]int{
	OpDropIndex:   0,
	OpDropColumn:  1,
	OpDropTable:   2,
	OpDropType:    3,
	OpCreateType:  4,
	OpAlterType:   5,
	OpCreateTable: 6,
	OpAddColumn:   7,
	OpAlterColumn: 8,
	OpAlterIndex:  9,
	OpCreateIndex: 10,
}

// Compare defines a total, portable ordering over actions: kind rank, then
// model name, then entity name. It replaces any hash-derived tie-break so
// repeated runs emit identical sequences.
func Compare(a, b Action) int {
	if r := cmp.Compare(kindRank[a.Kind()], kindRank[b.Kind()]); r != 0 {
		return r
	}
	if r := strings.Compare(a.Model(), b.Model()); r != 0 {
		return r
	}
	return strings.Compare(a.Entity(), b.Entity())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
