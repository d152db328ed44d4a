// Package scheduler implements the dependency scheduler of spec.md §4.8:
// a fixed-size worker pool that preprocesses a discovered set of source
// files, following `include` edges to sibling sources on the fly and
// restarting any file that blocks on one still in flight.
//
// A record's waiters live on the file being waited *for*, not the
// waiter. A fixed number of goroutines pull ready work from a
// mutex-guarded queue, rather than a single event loop or unbounded
// channel fan-out.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Pistonite/txtpp/internal/ctxlog"
	"github.com/Pistonite/txtpp/internal/pathkit"
	"github.com/Pistonite/txtpp/internal/ppfile"
	"github.com/Pistonite/txtpp/internal/ppmode"
	"github.com/Pistonite/txtpp/internal/report"
	"github.com/Pistonite/txtpp/internal/shellrun"
)

// Options configures a scheduler run. It mirrors the root package's
// Config, kept separate so this package does not import the root
// package (which imports this one).
type Options struct {
	Shell           []string
	Suffix          string
	Jobs            int
	TrailingNewline bool
	Mode            ppmode.Mode
	Recursive       bool
	// Reporter receives live per-file progress verbs as the run
	// proceeds. Nil is a valid, silent no-op (Reporter.Status tolerates
	// a nil receiver).
	Reporter *report.Reporter
}

// Outcome is one source file's terminal result.
type Outcome struct {
	Source string
	Err    error
}

type status int

const (
	statusQueued status = iota
	statusInProgress
	statusBlocked
	statusDone
	statusFailed
)

type record struct {
	source    pathkit.AbsPath
	status    status
	dependsOn pathkit.AbsPath // valid iff status == statusBlocked
	waiters   map[pathkit.AbsPath]struct{}
	output    []byte
	err       error
}

// Manager drives the worker pool over a discovered file set.
type Manager struct {
	mu      sync.Mutex
	cond    *sync.Cond
	records map[pathkit.AbsPath]*record
	queue   []pathkit.AbsPath
	pending int

	pp  *ppfile.Preprocessor
	opt Options
	rep *report.Reporter
}

// Run discovers sources under roots and preprocesses them to completion,
// per spec.md §4.8's termination condition: every input and everything
// reachable via discovered edges is Done or Failed.
func Run(ctx context.Context, roots []string, opt Options) ([]Outcome, error) {
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

	shell := shellrun.Resolve(opt.Shell)
	opt.Reporter.Status(report.VerbUsing, strings.Join(shell.Argv, " "))
	opt.Reporter.Status(report.VerbUsing, fmt.Sprintf("%d job(s)", opt.Jobs))

	m := &Manager{
		records: make(map[pathkit.AbsPath]*record),
		pp: &ppfile.Preprocessor{
			Shell:           shell,
			Suffix:          opt.Suffix,
			TrailingNewline: opt.TrailingNewline,
			Mode:            opt.Mode,
		},
		opt: opt,
		rep: opt.Reporter,
	}
	m.cond = sync.NewCond(&m.mu)

	roundtrip := make([]pathkit.AbsPath, 0, len(sources))
	m.mu.Lock()
	for _, s := range sources {
		m.ensureLocked(s)
		roundtrip = append(roundtrip, s)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < opt.Jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx)
		}()
	}
	wg.Wait()

	out := make([]Outcome, 0, len(roundtrip))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range roundtrip {
		r := m.records[s]
		out = append(out, Outcome{Source: s.String(), Err: r.err})
	}
	return out, nil
}

// ensureLocked returns the record for path, creating and enqueueing it
// if this is the first time it has been seen. Caller must hold m.mu.
func (m *Manager) ensureLocked(path pathkit.AbsPath) *record {
	r, ok := m.records[path]
	if ok {
		return r
	}
	r = &record{source: path, status: statusQueued, waiters: make(map[pathkit.AbsPath]struct{})}
	m.records[path] = r
	m.pending++
	m.queue = append(m.queue, path)
	m.cond.Broadcast()
	return r
}

func (m *Manager) worker(ctx context.Context) {
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && m.pending > 0 {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		path := m.queue[0]
		m.queue = m.queue[1:]
		r := m.records[path]
		r.status = statusInProgress
		m.mu.Unlock()

		m.process(ctx, path, r)
	}
}

func (m *Manager) process(ctx context.Context, path pathkit.AbsPath, r *record) {
	logger := ctxlog.FromContext(ctx).With("source", path.String())
	m.rep.Status(m.startVerb(), path.String())

	data, err := os.ReadFile(path.String())
	if err != nil {
		m.lockAndFail(path, &ppfile.Failure{Kind: ppfile.FailResolution, File: path, Line: -1, Msg: "cannot read source", Err: err})
		return
	}

	result, err := m.pp.Run(ctx, path, path.Dir(), data, resolverFor(m))
	if err != nil {
		var blocked *ppfile.Blocked
		if isBlocked(err, &blocked) {
			m.handleBlocked(path, blocked.On)
			return
		}
		logger.Warn("preprocess failed", "err", err)
		m.lockAndFail(path, err)
		return
	}

	if failErr := m.commit(path, result); failErr != nil {
		m.lockAndFail(path, failErr)
		return
	}

	m.mu.Lock()
	r.status = statusDone
	r.output = result.Output
	m.finishLocked(path)
	m.mu.Unlock()
}

// startVerb reports the verb printed when a file begins processing,
// mirroring the original's mode-to-verb mapping in
// core/execute/config.rs:97-99.
func (m *Manager) startVerb() string {
	if m.opt.Mode == ppmode.Verify {
		return report.VerbVerifying
	}
	return report.VerbProcessing
}

// doneVerb reports the per-file success verb, one per mode, matching
// SPEC_FULL.md's "wrote/verified/cleaned" trio (Clean has its own path
// through cleanOne and never reaches here).
func (m *Manager) doneVerb() string {
	if m.opt.Mode == ppmode.Verify {
		return report.VerbVerified
	}
	return report.VerbWrote
}

func isBlocked(err error, target **ppfile.Blocked) bool {
	if b, ok := err.(*ppfile.Blocked); ok {
		*target = b
		return true
	}
	return false
}

// commit writes result to disk according to the configured mode.
func (m *Manager) commit(path pathkit.AbsPath, result *ppfile.Result) error {
	outPath, err := pathkit.OutputPath(path.String(), m.opt.Suffix)
	if err != nil {
		return &ppfile.Failure{Kind: ppfile.FailResolution, File: path, Line: -1, Msg: "cannot derive output path", Err: err}
	}

	switch m.opt.Mode {
	case ppmode.Build:
		if err := os.WriteFile(outPath, result.Output, 0o644); err != nil {
			return &ppfile.Failure{Kind: ppfile.FailExecution, File: path, Line: -1, Msg: "cannot write output", Err: err}
		}
	case ppmode.InMemoryBuild:
		existing, readErr := os.ReadFile(outPath)
		if readErr == nil && string(existing) == string(result.Output) {
			return nil
		}
		if err := os.WriteFile(outPath, result.Output, 0o644); err != nil {
			return &ppfile.Failure{Kind: ppfile.FailExecution, File: path, Line: -1, Msg: "cannot write output", Err: err}
		}
	case ppmode.Verify:
		existing, readErr := os.ReadFile(outPath)
		if readErr != nil {
			return &ppfile.Failure{Kind: ppfile.FailExecution, File: path, Line: -1, Msg: "cannot read existing output for verification", Err: readErr}
		}
		if offset, ok := firstDiff(existing, result.Output); ok {
			return &VerificationFailure{File: path, Offset: offset}
		}
	}
	return nil
}

func firstDiff(a, b []byte) (int64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int64(i), true
		}
	}
	if len(a) != len(b) {
		return int64(n), true
	}
	return 0, false
}

// VerificationFailure is scheduler's own failure shape (spec.md §7's
// VerificationError), kept apart from ppfile.Failure since it is not
// something a file preprocessor pass itself can discover. Exported so
// the root package can classify it into a public VerificationError.
type VerificationFailure struct {
	File   pathkit.AbsPath
	Offset int64
}

func (v *VerificationFailure) Error() string {
	return v.File.String() + ": output differs from disk"
}

func (m *Manager) lockAndFail(path pathkit.AbsPath, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishFailedLocked(path, err)
}

func (m *Manager) finishFailedLocked(path pathkit.AbsPath, err error) {
	r := m.records[path]
	if r.status == statusDone || r.status == statusFailed {
		return
	}
	r.status = statusFailed
	r.err = err
	m.finishLocked(path)
}

// finishLocked reduces pending, and unblocks or cascades to waiters
// depending on whether this file finished Done or Failed. Caller must
// hold m.mu and must already have set r.status to a terminal value.
func (m *Manager) finishLocked(path pathkit.AbsPath) {
	r := m.records[path]
	if r.status == statusFailed {
		msg := path.String()
		if r.err != nil {
			msg += ": " + r.err.Error()
		}
		m.rep.Status(report.VerbFailed, msg)
	} else {
		m.rep.Status(m.doneVerb(), path.String())
	}
	m.pending--
	for waiter := range r.waiters {
		wr := m.records[waiter]
		if wr == nil || wr.status != statusBlocked {
			continue
		}
		if r.status == statusFailed {
			m.finishFailedLocked(waiter, &ppfile.Failure{
				Kind: ppfile.FailDependency,
				File: waiter,
				Line: -1,
				Msg:  "dependency failed: " + path.String(),
				Err:  r.err,
			})
			continue
		}
		wr.status = statusQueued
		wr.dependsOn = ""
		m.queue = append(m.queue, waiter)
	}
	m.cond.Broadcast()
}

// handleBlocked transitions path to Blocked(on=dep), detecting cycles
// first per spec.md §4.8 step 5.
func (m *Manager) handleBlocked(path pathkit.AbsPath, dep pathkit.AbsPath) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reachableLocked(dep, path) {
		m.failCycleLocked(path, dep)
		return
	}

	depRecord := m.ensureLocked(dep)
	if depRecord.status == statusDone {
		// Resolved between the block signal and now; just requeue.
		r := m.records[path]
		r.status = statusQueued
		m.queue = append(m.queue, path)
		m.cond.Broadcast()
		return
	}
	if depRecord.status == statusFailed {
		m.finishFailedLocked(path, &ppfile.Failure{
			Kind: ppfile.FailDependency, File: path, Line: -1,
			Msg: "dependency failed: " + dep.String(), Err: depRecord.err,
		})
		return
	}

	r := m.records[path]
	r.status = statusBlocked
	r.dependsOn = dep
	depRecord.waiters[path] = struct{}{}
	m.rep.Status(report.VerbBlocked, path.String()+" waiting on "+dep.String())
}

// reachableLocked reports whether following the single dependsOn chain
// starting at from reaches to.
func (m *Manager) reachableLocked(from, to pathkit.AbsPath) bool {
	cur := from
	visited := map[pathkit.AbsPath]struct{}{}
	for {
		if cur == to {
			return true
		}
		if _, ok := visited[cur]; ok {
			return false
		}
		visited[cur] = struct{}{}
		r, ok := m.records[cur]
		if !ok || r.status != statusBlocked {
			return false
		}
		cur = r.dependsOn
	}
}

func (m *Manager) failCycleLocked(a, b pathkit.AbsPath) {
	chain := []pathkit.AbsPath{b}
	cur := b
	for cur != a {
		r := m.records[cur]
		cur = r.dependsOn
		chain = append(chain, cur)
	}
	names := make([]string, 0, len(chain))
	for _, c := range chain {
		names = append(names, c.String())
	}
	for _, c := range chain {
		m.finishFailedLocked(c, &ppfile.Failure{Kind: ppfile.FailDependency, File: c, Line: -1, Cycle: names})
	}
}
