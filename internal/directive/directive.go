// Package directive implements the directive recognizer and accumulator
// from spec.md §4.2-4.3.
//
// Grounded on _examples/original_source/src/core/execute/pp/directive/
// {mod,directive_from,directive_add_line}.rs: Detect is a pure function of
// a single line's bytes, and AddLine is the separate, stateful
// continuation step, kept apart so each can be tested (and fuzzed, per
// spec.md §9) independently.
package directive

import (
	"strings"
	"unicode"
)

// Hash is the directive marker that separates a line's leading prefix from
// its directive name.
const Hash = "TXTPP#"

// Kind identifies which of the six directive forms a line matched.
type Kind string

const (
	KindEmpty   Kind = ""
	KindInclude Kind = "include"
	KindRun     Kind = "run"
	KindTemp    Kind = "temp"
	KindTag     Kind = "tag"
	KindWrite   Kind = "write"
)

// SupportsMultiLine reports whether directives of this kind may be
// continued across multiple lines (spec.md §4.3). include and tag always
// take exactly one line.
func (k Kind) SupportsMultiLine() bool {
	return k != KindInclude && k != KindTag
}

func parseKind(name string) (Kind, bool) {
	switch Kind(name) {
	case KindEmpty, KindInclude, KindRun, KindTemp, KindTag, KindWrite:
		return Kind(name), true
	default:
		return "", false
	}
}

// Directive is a single recognized directive, possibly still accumulating
// continuation lines.
type Directive struct {
	// Whitespaces is the leading whitespace run before the first
	// non-whitespace character on the head line.
	Whitespaces string
	// Prefix is everything between Whitespaces and the "TXTPP#" marker.
	Prefix string
	// Kind is the directive's classified kind.
	Kind Kind
	// Args holds one element per line consumed: index 0 is the head
	// line's argument fragment, and each later element is one
	// continuation line's contribution.
	Args []string
	// Index is the zero-based ordinal of this directive within its file,
	// counting every recognized directive including empty ones. It is
	// set by the file preprocessor, not by Detect.
	Index int
	// Line is the 1-based line number of the head line (the line Detect
	// matched), for diagnostics (spec.md §3's "originating line range in
	// source"). It is set by the file preprocessor, not by Detect.
	Line int
}

// Detect classifies line (which must not contain a line terminator) as a
// directive head, or reports that it is ordinary text.
func Detect(line string) (*Directive, bool) {
	firstNonSpace := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) })
	var whitespaces, rest string
	if firstNonSpace < 0 {
		whitespaces = line
		rest = ""
	} else {
		whitespaces = line[:firstNonSpace]
		rest = line[firstNonSpace:]
	}

	i := strings.Index(rest, Hash)
	if i < 0 {
		return nil, false
	}
	prefix := rest[:i]
	afterHash := rest[i+len(Hash):]

	name, arg, hasArg := strings.Cut(afterHash, " ")
	if hasArg {
		arg = strings.TrimFunc(arg, unicode.IsSpace)
	}

	kind, ok := parseKind(name)
	if !ok {
		return nil, false
	}

	return &Directive{
		Whitespaces: whitespaces,
		Prefix:      prefix,
		Kind:        kind,
		Args:        []string{arg},
	}, true
}

// AddLine attempts to consume line as a continuation of d, per spec.md
// §4.2's continuation grammar: the same whitespace prefix, followed by
// either the identical prefix string, |prefix| spaces, or the
// whitespace-trimmed prefix with nothing after it (an empty-argument
// continuation). Leading whitespace of the continuation's argument is
// preserved; only trailing whitespace is trimmed.
func (d *Directive) AddLine(line string) bool {
	if !d.Kind.SupportsMultiLine() {
		return false
	}
	if !strings.HasPrefix(line, d.Whitespaces) {
		return false
	}
	rest := line[len(d.Whitespaces):]

	trimmedPrefix := strings.TrimRightFunc(d.Prefix, unicode.IsSpace)
	if rest == trimmedPrefix {
		d.Args = append(d.Args, "")
		return true
	}

	if strings.HasPrefix(rest, d.Prefix) || strings.HasPrefix(rest, strings.Repeat(" ", len(d.Prefix))) {
		content := rest[len(d.Prefix):]
		content = strings.TrimRightFunc(content, unicode.IsSpace)
		d.Args = append(d.Args, content)
		return true
	}

	return false
}

// JoinSpace joins Args with a single space, as spec.md §4.3 requires for
// the run command string and the empty directive's (discarded) payload.
func (d *Directive) JoinSpace() string {
	return strings.Join(d.Args, " ")
}
