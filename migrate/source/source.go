// Package source resolves the content of migration files per kind and
// direction. Structural (auto) migrations carry action lists; the SQL kinds
// carry raw statement text split into forward and backward sections.
package source

import (
	"fmt"
	"sort"

	"github.com/enesj/automig/internal/debug"
	"github.com/enesj/automig/migrate/actions"
	"github.com/enesj/automig/migrate/diff"
	"github.com/enesj/automig/migrate/plan"
	"github.com/enesj/automig/schema"
)

// Kind identifies the migration file flavor.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindSQL      Kind = "sql"
	KindFunction Kind = "function"
	KindTrigger  Kind = "trigger"
	KindPolicy   Kind = "policy"
	KindView     Kind = "view"
)

// Direction selects forward application or rollback.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Migration is one loaded migration file. Auto migrations carry Actions; the
// SQL kinds carry the raw file text in SQL.
type Migration struct {
	Version int
	Name    string
	Kind    Kind
	Actions []actions.Action
	SQL     string
}

// Content is the resolved executable content for one (migration, direction)
// pair: either an ordered action list or SQL text, never both.
type Content struct {
	Actions []actions.Action
	SQL     string
}

// NoHistoryError reports that a backward migration could not be computed
// because the structural history needed for replay is incomplete.
type NoHistoryError struct {
	Version int
}

func (e *NoHistoryError) Error() string {
	return fmt.Sprintf("cannot reconstruct schema: version %d is missing from migration history", e.Version)
}

// Resolver resolves migration content against a loaded history. The history
// is kept sorted by version; backward auto migrations are recomputed from it
// by replay.
type Resolver struct {
	history []Migration
	cache   *SnapshotCache
}

// NewResolver copies and sorts the history by version.
func NewResolver(history []Migration) *Resolver {
	h := make([]Migration, len(history))
	copy(h, history)
	sort.Slice(h, func(i, j int) bool { return h[i].Version < h[j].Version })
	return &Resolver{history: h}
}

// WithCache attaches a snapshot cache used by schema reconstruction. Purely
// an optimization; resolution behaves identically without it.
func (r *Resolver) WithCache(c *SnapshotCache) *Resolver {
	r.cache = c
	return r
}

// Resolve returns the executable content for one migration in one direction.
// Every (kind, direction) pair is handled explicitly; an unknown combination
// is an error, never a silent empty result.
func (r *Resolver) Resolve(m Migration, dir Direction) (Content, error) {
	switch m.Kind {
	case KindAuto:
		switch dir {
		case Forward:
			return Content{Actions: m.Actions}, nil
		case Backward:
			return r.backwardAuto(m)
		}
	case KindSQL, KindFunction, KindTrigger, KindPolicy, KindView:
		switch dir {
		case Forward:
			return Content{SQL: ForwardSQL(m.SQL)}, nil
		case Backward:
			sql, ok := BackwardSQL(m.SQL)
			if !ok {
				debug.Warn("migration has no backward section",
					"version", m.Version, "name", m.Name, "kind", m.Kind)
			}
			return Content{SQL: sql}, nil
		}
	}
	return Content{}, fmt.Errorf("no handler for migration kind %q direction %q", m.Kind, dir)
}

// backwardAuto computes the inverse of a structural migration by replaying
// history to the schema before and after it, then diffing in reverse.
func (r *Resolver) backwardAuto(m Migration) (Content, error) {
	idx := -1
	for i, h := range r.history {
		if h.Version == m.Version {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Content{}, &NoHistoryError{Version: m.Version}
	}

	before := schema.Schema{}
	if idx > 0 {
		var err error
		before, err = r.SchemaAt(r.history[idx-1].Version)
		if err != nil {
			return Content{}, err
		}
	}
	after, err := actions.Apply(before, m.Actions)
	if err != nil {
		return Content{}, fmt.Errorf("version %d: %w", m.Version, err)
	}

	d := diff.Compute(after, before)
	acts := diff.Classify(after, before, d)
	ordered, err := plan.Order(after, acts)
	if err != nil {
		return Content{}, fmt.Errorf("order backward actions for version %d: %w", m.Version, err)
	}
	debug.Debug("computed backward migration",
		"version", m.Version, "actions", len(ordered))
	return Content{Actions: ordered}, nil
}

// SchemaAt reconstructs the schema snapshot as of the given version by
// replaying every structural migration up to and including it. Version 0 is
// the empty schema. SQL-kind migrations do not affect the tracked snapshot.
func (r *Resolver) SchemaAt(version int) (schema.Schema, error) {
	if version == 0 {
		return schema.Schema{}, nil
	}
	if r.cache != nil {
		if s, ok := r.cache.Get(version); ok {
			return s, nil
		}
	}
	cur := schema.Schema{}
	found := false
	for _, m := range r.history {
		if m.Version > version {
			break
		}
		if m.Version == version {
			found = true
		}
		if m.Kind != KindAuto {
			continue
		}
		next, err := actions.Apply(cur, m.Actions)
		if err != nil {
			return nil, fmt.Errorf("schema at version %d: %w", version, err)
		}
		cur = next
		if r.cache != nil {
			r.cache.Put(m.Version, cur)
		}
	}
	if !found {
		return nil, &NoHistoryError{Version: version}
	}
	return cur, nil
}
