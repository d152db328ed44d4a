package ppfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pistonite/txtpp/internal/pathkit"
	"github.com/Pistonite/txtpp/internal/ppmode"
	"github.com/Pistonite/txtpp/internal/shellrun"
)

func newPreprocessor() *Preprocessor {
	return &Preprocessor{Suffix: ".txtpp", TrailingNewline: true, Mode: ppmode.Build}
}

func TestRunPlainTextIsPassedThrough(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())

	res, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("hello\nworld\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(res.Output))
}

func TestRunNoTrailingSeparatorWhenOutputAlreadyEndsInNewline(t *testing.T) {
	// Regression test for the deferred-separator scheme: a directive
	// whose formatted output already ends with the file's line ending
	// must not receive a second one from the end-of-file trailing
	// newline step.
	p := newPreprocessor()
	p.Shell = shellrun.Resolve(nil)
	dir := pathkit.AbsPath(t.TempDir())

	res, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("# TXTPP#run echo hi\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(res.Output))
}

func TestRunAddsTrailingNewlineWhenOutputHasNone(t *testing.T) {
	p := newPreprocessor()
	p.Shell = shellrun.Resolve(nil)
	dir := pathkit.AbsPath(t.TempDir())

	res, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("# TXTPP#run printf hi\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", string(res.Output))
}

func TestRunTagCapturesNextDirectiveOutputAndSubstitutesLater(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())

	source := "TXTPP#tag X\n" +
		"# TXTPP#write captured content\n" +
		"before <X> after\n"

	res, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte(source), nil)
	require.NoError(t, err)
	assert.Equal(t, "before <captured content> after\n", string(res.Output))
}

func TestRunOrphanTagAtEndOfFile(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())

	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("TXTPP#tag Y\n"), nil)
	require.Error(t, err)

	var fail *Failure
	require.True(t, errors.As(err, &fail))
	assert.Equal(t, FailOrphanTag, fail.Kind)
	assert.Equal(t, []string{"Y"}, fail.Tags)
}

func TestRunFailureReportsDirectiveHeadLine(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())

	source := "before\n# TXTPP#temp\n"
	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte(source), nil)
	require.Error(t, err)

	var fail *Failure
	require.True(t, errors.As(err, &fail))
	assert.Equal(t, FailResolution, fail.Kind)
	assert.Equal(t, 2, fail.Line)
}

func TestRunIncludeResolvesDoneDependencyFromScheduler(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())
	// other.txt.txtpp must exist on disk for the "does this have a
	// source sibling" check, even though its content isn't read: the
	// resolver stands in for the scheduler's already-built output.
	require.NoError(t, os.WriteFile(filepath.Join(dir.String(), "other.txt.txtpp"), []byte("ignored"), 0o644))

	resolver := &stubResolverImpl{resolved: Resolved{State: DepDone, Output: []byte("Z\n")}}
	res, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("TXTPP#include other.txt\n"), resolver)
	require.NoError(t, err)
	assert.Equal(t, "Z\n", string(res.Output))
}

func TestRunIncludeBlocksOnPendingDependency(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir.String(), "other.txt.txtpp"), []byte("ignored"), 0o644))

	resolver := &stubResolverImpl{resolved: Resolved{State: DepPending}}
	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("TXTPP#include other.txt\n"), resolver)

	var blocked *Blocked
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, dir.String()+"/other.txt.txtpp", blocked.On.String())
}

func TestRunIncludeFailsWhenDependencyFailed(t *testing.T) {
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir.String(), "other.txt.txtpp"), []byte("ignored"), 0o644))

	depErr := errors.New("boom")
	resolver := &stubResolverImpl{resolved: Resolved{State: DepFailed, Err: depErr}}
	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("TXTPP#include other.txt\n"), resolver)

	var fail *Failure
	require.True(t, errors.As(err, &fail))
	assert.Equal(t, FailDependency, fail.Kind)
	assert.ErrorIs(t, fail, depErr)
}

func TestRunRejectsUnprefixedMultiLineDirective(t *testing.T) {
	// An empty prefix can't distinguish a continuation line from an
	// ordinary one, so a bare "TXTPP#run" at column zero must be
	// rejected up front instead of swallowing the rest of the file as
	// continuations.
	p := newPreprocessor()
	dir := pathkit.AbsPath(t.TempDir())

	source := "TXTPP#run echo hi\n" +
		"this is an ordinary paragraph of text.\n" +
		"it should never be treated as a continuation line.\n"

	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte(source), nil)
	require.Error(t, err)
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, FailParse, fail.Kind)
}

func TestRunRejectsCleanMode(t *testing.T) {
	p := newPreprocessor()
	p.Mode = ppmode.Clean
	dir := pathkit.AbsPath(t.TempDir())

	_, err := p.Run(context.Background(), dir+"/f.txt.txtpp", dir, []byte("x\n"), nil)
	assert.Error(t, err)
}

func TestCleanFileRemovesTempTargetsOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "scratch.tmp")
	require.NoError(t, os.WriteFile(target, []byte("junk"), 0o644))

	source := "# TXTPP#temp " + target + "\n" + "plain line\n"
	removed := CleanFile(pathkit.AbsPath(dir), []byte(source), ".txtpp")

	assert.Contains(t, removed, target)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCleanFileIgnoresMissingTarget(t *testing.T) {
	dir := t.TempDir()
	source := "# TXTPP#temp " + filepath.Join(dir, "never-existed.tmp") + "\n"
	removed := CleanFile(pathkit.AbsPath(dir), []byte(source), ".txtpp")
	assert.Empty(t, removed)
}

// stubResolverImpl implements Resolver, returning the same Resolved value
// for any sibling path queried.
type stubResolverImpl struct {
	resolved Resolved
}

func (s *stubResolverImpl) Resolve(sibling pathkit.AbsPath) Resolved {
	return s.resolved
}
