package ppfile

import (
	"fmt"

	"github.com/Pistonite/txtpp/internal/pathkit"
)

// FailureKind classifies a Failure the way spec.md §7 enumerates error
// kinds. The root package maps each kind to its own public error type
// (ParseError, ResolutionError, ...); ppfile and internal/scheduler stay
// independent of that package to avoid an import cycle, since the root
// package is the one that depends on them.
type FailureKind int

const (
	FailParse FailureKind = iota
	FailResolution
	FailExecution
	FailDependency
	FailOrphanTag
)

// Failure is a classified error produced while preprocessing a file.
type Failure struct {
	Kind FailureKind
	File pathkit.AbsPath
	Line int // -1 when not tied to a specific line
	Msg  string
	Err  error
	Tags []string // populated only for FailOrphanTag
	// Cycle lists the files forming a dependency cycle, in chain order,
	// populated only for a FailDependency produced by cycle detection.
	Cycle []string
}

func (f *Failure) Error() string {
	if len(f.Cycle) > 0 {
		return fmt.Sprintf("%s: dependency cycle: %v", f.File, f.Cycle)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.File, f.Msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.File, f.Msg)
}

func (f *Failure) Unwrap() error { return f.Err }

// parseFailAt, resolutionFailAt and executionFailAt build a Failure
// tied to a directive's head line, per spec.md §3's "originating line
// range in source". line is -1 when the failure has no single
// originating directive (e.g. a file-level I/O error the scheduler
// raises before any directive is parsed). DependencyError carries no
// Line field, so dependencyFail below needs none.

func parseFailAt(file pathkit.AbsPath, line int, msg string) *Failure {
	return &Failure{Kind: FailParse, File: file, Line: line, Msg: msg}
}

func resolutionFailAt(file pathkit.AbsPath, line int, msg string, err error) *Failure {
	return &Failure{Kind: FailResolution, File: file, Line: line, Msg: msg, Err: err}
}

func executionFailAt(file pathkit.AbsPath, line int, msg string, err error) *Failure {
	return &Failure{Kind: FailExecution, File: file, Line: line, Msg: msg, Err: err}
}

func dependencyFail(file pathkit.AbsPath, msg string, err error) *Failure {
	return &Failure{Kind: FailDependency, File: file, Line: -1, Msg: msg, Err: err}
}
