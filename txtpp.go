// Package txtpp implements a text-file preprocessing engine: a
// line-oriented directive language (include/run/temp/tag/write/empty)
// with tag-based deferred substitution, scheduled across files with
// their include dependencies resolved on the fly.
//
// Preprocess, Verify and Clean below mirror the CLI's three run modes,
// exposed as a library over a scheduler that walks include dependencies
// on the fly.
package txtpp

import (
	"context"

	"github.com/Pistonite/txtpp/internal/ppfile"
	"github.com/Pistonite/txtpp/internal/ppmode"
	"github.com/Pistonite/txtpp/internal/report"
	"github.com/Pistonite/txtpp/internal/scheduler"
)

// Preprocess computes and writes output for every source discovered
// under roots, per spec.md §4.8's Build/InMemoryBuild modes. cfg.Mode
// must not be Clean; use Clean below for that.
func Preprocess(ctx context.Context, roots []string, cfg Config) (*Report, error) {
	return run(ctx, roots, cfg)
}

// Verify computes output for every discovered source and fails any file
// whose result differs from what is already on disk, without writing
// anything, per spec.md §4.8's Verify mode.
func Verify(ctx context.Context, roots []string, cfg Config) (*Report, error) {
	cfg.Mode = ppmode.Verify
	return run(ctx, roots, cfg)
}

// Clean removes every discovered source's output file and any temp
// side-effect files it declares, per spec.md §4.8's Clean mode.
func Clean(ctx context.Context, roots []string, cfg Config) (*Report, error) {
	rep := report.New(cfg.Color)
	outcomes, err := scheduler.Clean(ctx, roots, toOptions(cfg, rep))
	if err != nil {
		return nil, err
	}
	return toReport(outcomes, rep), nil
}

func run(ctx context.Context, roots []string, cfg Config) (*Report, error) {
	rep := report.New(cfg.Color)
	outcomes, err := scheduler.Run(ctx, roots, toOptions(cfg, rep))
	if err != nil {
		return nil, err
	}
	return toReport(outcomes, rep), nil
}

func toOptions(cfg Config, rep *report.Reporter) scheduler.Options {
	return scheduler.Options{
		Shell:           cfg.Shell,
		Suffix:          cfg.Suffix,
		Jobs:            cfg.Jobs,
		TrailingNewline: cfg.TrailingNewline,
		Mode:            cfg.Mode,
		Recursive:       cfg.Recursive,
		Reporter:        rep,
	}
}

// toReport translates each scheduler.Outcome into a Report, classifying
// any *ppfile.Failure into one of the six public error types so callers
// never need to reach into internal packages to inspect a result. Each
// outcome's own scanning/processing/wrote/verified/failed verbs were already
// printed live as the scheduler ran (internal/scheduler); this only
// prints the final tally.
func toReport(outcomes []scheduler.Outcome, rep *report.Reporter) *Report {
	rpt := &Report{}
	for _, o := range outcomes {
		rpt.add(o.Source, classify(o.Err))
	}
	rep.Summary(len(outcomes), rpt.FailureCount())
	return rpt
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if verifyFail, ok := err.(*scheduler.VerificationFailure); ok {
		return &VerificationError{File: verifyFail.File.String(), Offset: verifyFail.Offset, Msg: "output differs from disk"}
	}
	fail, ok := err.(*ppfile.Failure)
	if !ok {
		return err
	}
	switch fail.Kind {
	case ppfile.FailParse:
		return &ParseError{File: fail.File.String(), Line: fail.Line, Msg: fail.Msg}
	case ppfile.FailResolution:
		return &ResolutionError{File: fail.File.String(), Line: fail.Line, Msg: fail.Msg}
	case ppfile.FailExecution:
		return &ExecutionError{File: fail.File.String(), Line: fail.Line, Msg: fail.Msg, Err: fail.Err}
	case ppfile.FailDependency:
		return &DependencyError{File: fail.File.String(), Msg: fail.Msg, Cycle: fail.Cycle}
	case ppfile.FailOrphanTag:
		return &OrphanTagError{File: fail.File.String(), Tags: fail.Tags}
	default:
		return err
	}
}
