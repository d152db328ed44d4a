package shellrun

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pistonite/txtpp/internal/pathkit"
)

func TestResolveUsesConfiguredShellVerbatim(t *testing.T) {
	s := Resolve([]string{"bash", "-c"})
	assert.Equal(t, []string{"bash", "-c"}, s.Argv)
}

func TestResolveDefaultsToPosixShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix default only applies off windows")
	}
	s := Resolve(nil)
	assert.Equal(t, []string{"sh", "-c"}, s.Argv)
}

func TestGuardAgainstRecursionPassesWithoutEnv(t *testing.T) {
	os.Unsetenv(EnvFile)
	assert.NoError(t, GuardAgainstRecursion())
}

func TestGuardAgainstRecursionFailsWhenAlreadyInsideRunChild(t *testing.T) {
	t.Setenv(EnvFile, "/some/file.txt.txtpp")
	assert.Error(t, GuardAgainstRecursion())
}

func TestRunCapturesStdoutAndSetsEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell only")
	}
	dir, err := pathkit.Abs(t.TempDir())
	require.NoError(t, err)

	s := Resolve(nil)
	out, err := s.Run(context.Background(), "printf '%s' \"$TXTPP_FILE:$TXTPP_DIRECTIVE_INDEX\"", dir, dir+"/f.txt.txtpp", 3)
	require.NoError(t, err)
	assert.Equal(t, dir.String()+"/f.txt.txtpp:3", out)
}

func TestRunWrapsNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell only")
	}
	dir, err := pathkit.Abs(t.TempDir())
	require.NoError(t, err)

	s := Resolve(nil)
	_, err = s.Run(context.Background(), "exit 3", dir, dir+"/f.txt.txtpp", 0)
	assert.Error(t, err)
}
