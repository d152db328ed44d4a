package txtpp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt.txtpp"), []byte("hello\nworld\n"), 0o644))

	cfg := DefaultConfig()
	rpt, err := Preprocess(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.False(t, rpt.Failed())

	got, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(got))
}

func TestPreprocessSurfacesOrphanTagAsPublicError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt.txtpp"), []byte("TXTPP#tag Y\n"), 0o644))

	rpt, err := Preprocess(context.Background(), []string{dir}, DefaultConfig())
	require.NoError(t, err)
	require.True(t, rpt.Failed())
	require.Equal(t, 1, rpt.FailureCount())

	var orphan *OrphanTagError
	require.True(t, errors.As(rpt.Files[0].Err, &orphan))
	assert.Equal(t, []string{"Y"}, orphan.Tags)
}

func TestVerifyReportsMismatchAsVerificationError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt.txtpp"), []byte("hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("stale\n"), 0o644))

	rpt, err := Verify(context.Background(), []string{dir}, DefaultConfig())
	require.NoError(t, err)
	require.True(t, rpt.Failed())

	var verifyErr *VerificationError
	require.True(t, errors.As(rpt.Files[0].Err, &verifyErr))
}

func TestCleanRemovesComputedOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt.txtpp"), []byte("hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\n"), 0o644))

	rpt, err := Clean(context.Background(), []string{dir}, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, rpt.Failed())

	_, statErr := os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
