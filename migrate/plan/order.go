// Package plan orders a flat action list into a single dependency-respecting
// execution sequence. SQL must never reference a table or type that does not
// exist yet, and drops must run in reverse-creation order.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/enesj/automig/internal/debug"
	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/schema"
)

// CycleError reports an action set that cannot be linearized. This is fatal:
// the change has to be split into separate migrations by hand.
type CycleError struct {
	Actions []actions.Action
}

func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Actions))
	for _, a := range e.Actions {
		names = append(names, a.String())
	}
	return fmt.Sprintf("unresolvable dependency cycle between actions: %s", strings.Join(names, "; "))
}

// Order returns a total, deterministic linearization of the action set such
// that every action appears after all actions it depends on. The old snapshot
// supplies the pre-migration state needed for drop ordering. Ties are broken
// by the explicit action ordering, so identical input always yields identical
// output.
func Order(old schema.Schema, acts []actions.Action) ([]actions.Action, error) {
	n := len(acts)
	if n == 0 {
		return nil, nil
	}

	// Node n is the synthetic root; every action depends on it directly so
	// the graph is connected and the sort well-defined even for independent
	// actions.
	root := n
	children := make([][]int, n+1)
	indegree := make([]int, n+1)
	for i := 0; i < n; i++ {
		children[root] = append(children[root], i)
		indegree[i]++
	}
	for child := 0; child < n; child++ {
		for parent := 0; parent < n; parent++ {
			if parent == child {
				continue
			}
			if dependsOn(acts[child], acts[parent], old) {
				children[parent] = append(children[parent], child)
				indegree[child]++
			}
		}
	}

	ready := []int{root}
	out := make([]actions.Action, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			if ready[i] == root || ready[j] == root {
				return ready[i] == root
			}
			return actions.Compare(acts[ready[i]], acts[ready[j]]) < 0
		})
		cur := ready[0]
		ready = ready[1:]
		if cur != root {
			out = append(out, acts[cur])
		}
		for _, ch := range children[cur] {
			indegree[ch]--
			if indegree[ch] == 0 {
				ready = append(ready, ch)
			}
		}
	}

	if len(out) != n {
		emitted := make(map[actions.Action]bool, len(out))
		for _, a := range out {
			emitted[a] = true
		}
		var remaining []actions.Action
		for _, a := range acts {
			if !emitted[a] {
				remaining = append(remaining, a)
			}
		}
		sort.Slice(remaining, func(i, j int) bool {
			return actions.Compare(remaining[i], remaining[j]) < 0
		})
		return nil, &CycleError{Actions: remaining}
	}
	debug.Debug("ordered actions", "count", n)
	return out, nil
}

// dependsOn is the parent predicate: it reports whether child must execute
// after parent.
func dependsOn(child, parent actions.Action, old schema.Schema) bool {
	switch c := child.(type) {
	case *actions.CreateTable:
		for _, f := range c.Fields {
			if target := f.Options.ForeignKeyModel(); target != "" && target != c.Name && createsModel(parent, target) {
				return true
			}
			if f.Type.IsEnum() && createsType(parent, f.Type.Enum) {
				return true
			}
		}
	case *actions.AddColumn:
		if createsModel(parent, c.Table) {
			return true
		}
		if target := c.Field.Options.ForeignKeyModel(); target != "" && target != c.Table && createsModel(parent, target) {
			return true
		}
		if c.Field.Type.IsEnum() && createsType(parent, c.Field.Type.Enum) {
			return true
		}
	case *actions.AlterColumn:
		if createsModel(parent, c.Table) {
			return true
		}
		if d, ok := c.Changes[actions.OptForeignKey]; ok {
			if fk, ok := d.To.(string); ok {
				target, _, _ := strings.Cut(fk, "/")
				if target != "" && target != c.Table && createsModel(parent, target) {
					return true
				}
			}
		}
		if d, ok := c.Changes[actions.OptType]; ok {
			if t, ok := d.To.(schema.ColumnType); ok && t.IsEnum() && createsType(parent, t.Enum) {
				return true
			}
		}
	case *actions.CreateIndex:
		return indexDepends(c.Table, c.Index, parent)
	case *actions.AlterIndex:
		return indexDepends(c.Table, c.Index, parent)
	case *actions.DropTable:
		// Tables referencing this one must drop their tables or referencing
		// columns first.
		for modelName, m := range old {
			if modelName == c.Name {
				continue
			}
			for fieldName, f := range m.Fields {
				if f.Options.ForeignKeyModel() != c.Name {
					continue
				}
				switch p := parent.(type) {
				case *actions.DropTable:
					if p.Name == modelName {
						return true
					}
				case *actions.DropColumn:
					if p.Table == modelName && p.Name == fieldName {
						return true
					}
				}
			}
		}
	case *actions.DropType:
		// The type drop is a child of every column or table drop that used
		// it: columns go first, the type goes last.
		switch p := parent.(type) {
		case *actions.DropTable:
			if m, ok := old[p.Name]; ok && modelUsesType(m, c.Name) {
				return true
			}
		case *actions.DropColumn:
			if m, ok := old[p.Table]; ok {
				if f, ok := m.Fields[p.Name]; ok && f.Type.IsEnum() && f.Type.Enum == c.Name {
					return true
				}
			}
		}
	}
	return false
}

func createsModel(a actions.Action, name string) bool {
	ct, ok := a.(*actions.CreateTable)
	return ok && ct.Name == name
}

func createsType(a actions.Action, name string) bool {
	switch p := a.(type) {
	case *actions.CreateType:
		return p.Name == name
	case *actions.AlterType:
		return p.Name == name
	}
	return false
}

// indexDepends reports whether an index action must wait for the creation of
// its table or of any field it covers.
func indexDepends(table string, idx schema.Index, parent actions.Action) bool {
	if createsModel(parent, table) {
		return true
	}
	if p, ok := parent.(*actions.AddColumn); ok && p.Table == table {
		for _, f := range idx.Fields {
			if f == p.Name {
				return true
			}
		}
	}
	return false
}

func modelUsesType(m schema.Model, typeName string) bool {
	if _, owns := m.Types[typeName]; owns {
		return true
	}
	for _, f := range m.Fields {
		if f.Type.IsEnum() && f.Type.Enum == typeName {
			return true
		}
	}
	return false
}
