package scheduler

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/semaphore"

	"github.com/Pistonite/txtpp/internal/pathkit"
	"github.com/Pistonite/txtpp/internal/ppfile"
	"github.com/Pistonite/txtpp/internal/report"
)

// Clean removes the output file and any `temp` side-effect files for
// every discovered source under roots, per spec.md §4.8's Clean mode.
// It does not need the dependency machinery Run uses: deletion targets
// are derivable from a single forward scan of each source, independent
// of any other file.
func Clean(ctx context.Context, roots []string, opt Options) ([]Outcome, error) {
	if opt.Jobs < 1 {
		opt.Jobs = 1
	}
	if opt.Suffix == "" {
		opt.Suffix = pathkit.DefaultSuffix
	}

	for _, root := range roots {
		opt.Reporter.Status(report.VerbScanning, root)
	}
	sources, err := discoverRoots(roots, opt.Suffix, opt.Recursive)
	if err != nil {
		return nil, err
	}
	opt.Reporter.Status(report.VerbScanned, fmt.Sprintf("%d source(s)", len(sources)))

	sem := semaphore.NewWeighted(int64(opt.Jobs))
	out := make([]Outcome, len(sources))

	for i, s := range sources {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func(i int, s pathkit.AbsPath) {
			defer sem.Release(1)
			out[i] = cleanOne(s, opt.Suffix, opt.Reporter)
		}(i, s)
	}
	// Drain: acquiring the full weight blocks until every goroutine has
	// released, without needing a separate WaitGroup.
	_ = sem.Acquire(ctx, int64(opt.Jobs))

	return out, nil
}

func cleanOne(source pathkit.AbsPath, suffix string, rep *report.Reporter) Outcome {
	rep.Status(report.VerbCleaning, source.String())

	data, err := os.ReadFile(source.String())
	if err != nil {
		// Missing source: nothing to clean, not a failure worth
		// reporting (Clean's contract ignores parse/execution errors
		// entirely; a vanished source is milder still).
		rep.Status(report.VerbCleaned, source.String())
		return Outcome{Source: source.String()}
	}

	ppfile.CleanFile(source.Dir(), data, suffix)

	if outPath, err := pathkit.OutputPath(source.String(), suffix); err == nil {
		_ = os.Remove(outPath)
	}

	rep.Status(report.VerbCleaned, source.String())
	return Outcome{Source: source.String()}
}
