package source

import "strings"

// SQL migration files hold both directions in one file, separated by marker
// comments. Text before any marker belongs to the forward section.
const (
	forwardMarker  = "-- FORWARD"
	backwardMarker = "-- BACKWARD"
)

// ForwardSQL extracts the forward section of a SQL migration file.
func ForwardSQL(text string) string {
	fwd, _, _ := splitSections(text)
	return fwd
}

// BackwardSQL extracts the backward section. A missing backward marker is
// recoverable: it returns "" and ok=false, and rollback of that migration is
// a no-op.
func BackwardSQL(text string) (string, bool) {
	_, bwd, ok := splitSections(text)
	return bwd, ok
}

func splitSections(text string) (fwd, bwd string, hasBackward bool) {
	var f, b []string
	backward := false
	for _, line := range strings.Split(text, "\n") {
		switch strings.TrimSpace(line) {
		case forwardMarker:
			backward = false
			continue
		case backwardMarker:
			backward = true
			hasBackward = true
			continue
		}
		if backward {
			b = append(b, line)
		} else {
			f = append(f, line)
		}
	}
	return strings.TrimSpace(strings.Join(f, "\n")), strings.TrimSpace(strings.Join(b, "\n")), hasBackward
}
