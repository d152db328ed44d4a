package scheduler

import (
	"github.com/Pistonite/txtpp/internal/pathkit"
	"github.com/Pistonite/txtpp/internal/ppfile"
)

// managerResolver answers a file preprocessor's questions about a
// sibling source's status, per spec.md §4.8 step 3. It never mutates
// scheduler state: a Pending answer causes the caller to abandon its
// attempt, and the scheduler registers the resulting block itself once
// it sees that abandonment (Manager.handleBlocked).
type managerResolver struct {
	m *Manager
}

func resolverFor(m *Manager) ppfile.Resolver {
	return &managerResolver{m: m}
}

func (mr *managerResolver) Resolve(sibling pathkit.AbsPath) ppfile.Resolved {
	mr.m.mu.Lock()
	defer mr.m.mu.Unlock()

	r, ok := mr.m.records[sibling]
	if !ok {
		return ppfile.Resolved{State: ppfile.DepPending}
	}
	switch r.status {
	case statusDone:
		return ppfile.Resolved{State: ppfile.DepDone, Output: r.output}
	case statusFailed:
		return ppfile.Resolved{State: ppfile.DepFailed, Err: r.err}
	default:
		return ppfile.Resolved{State: ppfile.DepPending}
	}
}
