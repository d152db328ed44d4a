// Package tagstate implements the per-file tag registry from spec.md §3
// ("Tag") and §4.6 ("Tag substitution").
//
// Grounded on _examples/original_source/src/core/util/tag_state.rs, whose
// unit tests pin down the leftmost-match, delete-on-substitution and
// prefix-collision behavior ported here. Unlike the original, InjectTags
// never appends a trailing terminator itself: this engine defers line
// termination to the file preprocessor's deferred-separator scheme
// (spec.md §4.5/§4.7), so a tag registry only ever hands back the
// substituted, terminator-free line content.
package tagstate

import (
	"fmt"
	"strings"

	"github.com/Pistonite/txtpp/internal/lineio"
)

// State is one file's tag registry: at most one tag pending capture, plus
// zero or more tags already carrying stored output awaiting substitution.
type State struct {
	pendingName string
	hasPending  bool
	stored      map[string]string
}

// New returns an empty registry.
func New() *State {
	return &State{stored: make(map[string]string)}
}

// ErrEmptyName is returned by Create when name is empty. Callers surface
// this as a ParseError (spec.md §7), unlike the other Create failures,
// which are resolution failures.
var ErrEmptyName = fmt.Errorf("tag name must not be empty")

// CollisionError reports that a tag name conflicts with the
// pending-capture slot or an already-stored tag (spec.md §4.4.4).
type CollisionError struct {
	Name string
	With string
	// Pending is true when the conflict is with the pending-capture
	// slot rather than a stored tag.
	Pending bool
}

func (e *CollisionError) Error() string {
	if e.Pending {
		return fmt.Sprintf("cannot create tag %q: tag %q is still awaiting capture", e.Name, e.With)
	}
	return fmt.Sprintf("tag %q is ambiguous with existing tag %q", e.Name, e.With)
}

// Create validates name and transitions it to pending-capture.
//
// Enforces spec.md §3's invariants: no other tag may be pending, and name
// may not be a prefix of, or have as a prefix, any currently stored tag.
func (s *State) Create(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if s.hasPending {
		return &CollisionError{Name: name, With: s.pendingName, Pending: true}
	}
	for k := range s.stored {
		if strings.HasPrefix(k, name) || strings.HasPrefix(name, k) {
			return &CollisionError{Name: name, With: k}
		}
	}
	s.pendingName = name
	s.hasPending = true
	return nil
}

// TryStore attaches content to the pending tag, if any, and clears the
// pending slot. It reports false (and does nothing) if no tag is
// currently pending capture, meaning content belongs on the output
// stream instead.
func (s *State) TryStore(content string) bool {
	if !s.hasPending {
		return false
	}
	s.stored[s.pendingName] = content
	s.hasPending = false
	s.pendingName = ""
	return true
}

// HasOutstanding reports whether any tag (pending or stored) has not yet
// been consumed by a substitution. Used at end-of-file to raise
// OrphanTagError.
func (s *State) HasOutstanding() bool {
	return s.hasPending || len(s.stored) > 0
}

// PendingName returns the name of the tag awaiting capture, if any.
func (s *State) PendingName() (string, bool) {
	return s.pendingName, s.hasPending
}

// StoredNames returns the names of all tags still awaiting substitution,
// for diagnostics.
func (s *State) StoredNames() []string {
	names := make([]string, 0, len(s.stored))
	for k := range s.stored {
		names = append(names, k)
	}
	return names
}

// InjectTags scans line left to right for the leftmost occurrence of any
// stored tag name, replaces it with the tag's stored text (its internal
// newlines normalized to ending), deletes that tag, and repeats on the
// unreplaced suffix only. It never appends a terminator: line and the
// returned string are both terminator-free.
func (s *State) InjectTags(line string, ending lineio.Ending) string {
	if len(s.stored) == 0 {
		return line
	}

	var out strings.Builder
	remaining := line
	for len(s.stored) > 0 {
		matchIdx := -1
		var matchKey string
		for k := range s.stored {
			i := strings.Index(remaining, k)
			if i < 0 {
				continue
			}
			if matchIdx == -1 || i < matchIdx {
				matchIdx = i
				matchKey = k
			}
		}
		if matchIdx == -1 {
			break
		}
		out.WriteString(remaining[:matchIdx])
		out.WriteString(normalizeEnding(s.stored[matchKey], ending))
		delete(s.stored, matchKey)
		remaining = remaining[matchIdx+len(matchKey):]
	}
	out.WriteString(remaining)
	return out.String()
}

// normalizeEnding rewrites any line terminator inside value to ending,
// without adding or removing a terminator at the very end.
func normalizeEnding(value string, ending lineio.Ending) string {
	lines, _ := lineio.Split([]byte(value))
	if len(lines) == 0 {
		return ""
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Content
	}
	joined := strings.Join(parts, string(ending))
	if lines[len(lines)-1].Terminated {
		joined += string(ending)
	}
	return joined
}
