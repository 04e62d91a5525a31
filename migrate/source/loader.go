package source

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/spf13/afero"

	"github.com/enesj/automig/internal/debug"
	"github.com/enesj/automig/migrate/actions"
)

// Migration file names follow NNNN_name.<kind>: a strict 4-digit version, an
// underscore, a name, and an extension selecting the kind. Plain .json is a
// structural (auto) migration, plain .sql a raw SQL one; the remaining kinds
// use a compound extension like .trigger.sql.
var fileNameRe = regexp.MustCompile(`^(\d{4})_([A-Za-z0-9][A-Za-z0-9_-]*)\.(function\.sql|trigger\.sql|policy\.sql|view\.sql|sql|json)$`)

var extKind = map[string]Kind{
	"json":         KindAuto,
	"sql":          KindSQL,
	"function.sql": KindFunction,
	"trigger.sql":  KindTrigger,
	"policy.sql":   KindPolicy,
	"view.sql":     KindView,
}

// Loader reads a migration directory into a version-sorted history. The
// filesystem is abstracted so tests run against an in-memory fs.
type Loader struct {
	fs  afero.Fs
	dir string
}

func NewLoader(fs afero.Fs, dir string) *Loader {
	return &Loader{fs: fs, dir: dir}
}

// Load parses every migration file in the directory. Files that do not match
// the naming grammar are skipped with a warning; duplicate versions are an
// error.
func (l *Loader) Load() ([]Migration, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil, fmt.Errorf("read migration dir %s: %w", l.dir, err)
	}

	var migrations []Migration
	seen := map[int]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			debug.Warn("skipping file that is not a migration", "file", entry.Name())
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		data, err := afero.ReadFile(l.fs, filepath.Join(l.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		mig := Migration{
			Version: version,
			Name:    m[2],
			Kind:    extKind[m[3]],
		}
		if mig.Kind == KindAuto {
			acts, err := actions.UnmarshalActions(data)
			if err != nil {
				return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
			}
			mig.Actions = acts
		} else {
			mig.SQL = string(data)
		}
		migrations = append(migrations, mig)
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	debug.Debug("loaded migrations", "dir", l.dir, "count", len(migrations))
	return migrations, nil
}
