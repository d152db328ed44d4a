// Package shellrun resolves and invokes the shell backing the `run`
// directive (spec.md §4.4.2).
//
// Grounded on _examples/original_source/src/fs/shell.rs for the shape of
// a resolved shell (an argv prefix plus the literal command appended as
// the final argument) and its environment-variable contract, generalized
// to spec.md §4.4.2's explicit pwsh/powershell/cmd preference order,
// which post-dates that file.
package shellrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"unicode/utf8"

	"github.com/Pistonite/txtpp/internal/pathkit"
)

// EnvFile is the environment variable exposing the current source's path
// to `run` children.
const EnvFile = "TXTPP_FILE"

// EnvDirectiveIndex is the environment variable exposing the 0-based
// ordinal of the running directive.
const EnvDirectiveIndex = "TXTPP_DIRECTIVE_INDEX"

// Shell is a resolved argv prefix: children are spawned as
// append(Argv, command).
type Shell struct {
	Argv []string
}

// Resolve returns the configured shell, or the host default if words is
// empty. On posix hosts the default is "sh -c"; on windows it prefers
// "pwsh -NonInteractive -NoProfile -Command", falling back to
// "powershell -NonInteractive -NoProfile -Command", then "cmd /C".
func Resolve(words []string) *Shell {
	if len(words) > 0 {
		return &Shell{Argv: append([]string(nil), words...)}
	}
	if runtime.GOOS != "windows" {
		return &Shell{Argv: []string{"sh", "-c"}}
	}
	for _, candidate := range []string{"pwsh", "powershell"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return &Shell{Argv: []string{candidate, "-NonInteractive", "-NoProfile", "-Command"}}
		}
	}
	return &Shell{Argv: []string{"cmd", "/C"}}
}

// GuardAgainstRecursion returns an error if the current process's own
// environment already carries TXTPP_FILE, meaning it was itself launched
// as a `run` child (spec.md §4.4.2, §6's self-recursion guard).
func GuardAgainstRecursion() error {
	if v, ok := os.LookupEnv(EnvFile); ok {
		return fmt.Errorf("shellrun: refusing to start: already running inside a txtpp run child (TXTPP_FILE=%s)", v)
	}
	return nil
}

// Run spawns the shell with command appended to its argv, in workDir,
// with sourceFile and directiveIndex exposed via the environment, and
// returns the child's captured standard output.
func (s *Shell) Run(ctx context.Context, command string, workDir pathkit.AbsPath, sourceFile pathkit.AbsPath, directiveIndex int) (string, error) {
	argv := append(append([]string(nil), s.Argv...), command)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = pathkit.NormalizeForSubprocess(workDir.String())
	cmd.Env = append(os.Environ(),
		EnvFile+"="+sourceFile.String(),
		EnvDirectiveIndex+"="+strconv.Itoa(directiveIndex),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("command %q exited with status %d: %s", command, exitErr.ExitCode(), stderr.String())
		}
		return "", fmt.Errorf("command %q failed to start: %w", command, err)
	}

	out := stdout.Bytes()
	if !utf8.Valid(out) {
		return "", fmt.Errorf("command %q produced non-UTF-8 output", command)
	}
	return string(out), nil
}
