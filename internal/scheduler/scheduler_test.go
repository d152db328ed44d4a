package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pistonite/txtpp/internal/ppfile"
	"github.com/Pistonite/txtpp/internal/ppmode"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func baseOptions() Options {
	return Options{Suffix: ".txtpp", Jobs: 1, TrailingNewline: true, Mode: ppmode.Build}
}

func TestRunBuildsSingleFileWithNoDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt.txtpp", "hello\n")

	outcomes, err := Run(context.Background(), []string{dir}, baseOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))
}

func TestRunFollowsIncludeDependencyAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt.txtpp", "Z\n")
	writeFile(t, dir, "b.txt.txtpp", "TXTPP#include a.txt\n")

	outcomes, err := Run(context.Background(), []string{dir}, baseOptions())
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.NoError(t, o.Err, o.Source)
	}

	got, err := os.ReadFile(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Z\n", string(got))
}

func TestRunDetectsMutualIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.txt.txtpp", "TXTPP#include y.txt\n")
	writeFile(t, dir, "y.txt.txtpp", "TXTPP#include x.txt\n")

	outcomes, err := Run(context.Background(), []string{dir}, baseOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	for _, o := range outcomes {
		require.Error(t, o.Err, o.Source)
		var fail *ppfile.Failure
		require.True(t, errors.As(o.Err, &fail))
		assert.Equal(t, ppfile.FailDependency, fail.Kind)
		assert.NotEmpty(t, fail.Cycle)
	}
}

func TestRunVerifyModeFailsOnDiskMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt.txtpp", "hello\n")
	writeFile(t, dir, "a.txt", "stale content\n")

	opt := baseOptions()
	opt.Mode = ppmode.Verify
	outcomes, err := Run(context.Background(), []string{dir}, opt)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	var verifyFail *VerificationFailure
	require.True(t, errors.As(outcomes[0].Err, &verifyFail))

	// Verify must not have touched the on-disk output.
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "stale content\n", string(got))
}

func TestRunInMemoryBuildSkipsWriteWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt.txtpp", "hello\n")
	outPath := writeFile(t, dir, "a.txt", "hello\n")

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	before := info.ModTime()

	opt := baseOptions()
	opt.Mode = ppmode.InMemoryBuild
	outcomes, err := Run(context.Background(), []string{dir}, opt)
	require.NoError(t, err)
	assert.NoError(t, outcomes[0].Err)

	info, err = os.Stat(outPath)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}

func TestCleanRemovesOutputAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "scratch.tmp")
	writeFile(t, dir, "a.txt.txtpp", "# TXTPP#temp "+scratch+"\ncontent\n")
	writeFile(t, dir, "a.txt", "old output\n")
	writeFile(t, dir, "scratch.tmp", "junk")

	outcomes, err := Clean(context.Background(), []string{dir}, baseOptions())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)

	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(scratch)
	assert.True(t, os.IsNotExist(err))
}
