package txtpp

import "github.com/Pistonite/txtpp/internal/ppmode"

// Mode selects the scheduler's operating mode, per spec.md §4.8.
type Mode = ppmode.Mode

const (
	// Build writes computed output to disk unconditionally.
	Build = ppmode.Build
	// InMemoryBuild computes output in memory and writes to disk only if
	// it differs from what is already there ("--needed").
	InMemoryBuild = ppmode.InMemoryBuild
)

// Config holds the options recognized by spec.md §6.
type Config struct {
	// Shell is the word list run as "<shell...> COMMAND". Empty selects
	// the host's default shell, resolved by internal/shellrun.
	Shell []string
	// Recursive descends into subdirectories when a root is a directory.
	Recursive bool
	// Jobs is the worker count; 1 means strictly serial (spec.md §4.8's
	// degenerate DFS mode).
	Jobs int
	// TrailingNewline, when true (the default), appends a final
	// line-ending to any output that would otherwise end without one.
	TrailingNewline bool
	// Mode selects Build/InMemoryBuild/Verify/Clean.
	Mode Mode
	// Suffix is the source-file suffix; defaults to ".txtpp".
	Suffix string
	// Color enables ANSI-colored progress reporting.
	Color bool
}

// DefaultConfig returns the configuration spec.md §6 describes as the
// baseline: one worker, trailing newlines on, the default suffix, colored
// progress.
func DefaultConfig() Config {
	return Config{
		Jobs:            1,
		TrailingNewline: true,
		Mode:            Build,
		Suffix:          ".txtpp",
		Color:           true,
	}
}
