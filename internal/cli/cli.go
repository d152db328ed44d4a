// Package cli parses txtpp's command-line arguments into a run-ready
// configuration, kept apart from cmd/txtpp/main.go for easier testing.
//
// A flag.FlagSet with a custom Usage function, an ExitError carrying a
// process exit code so main can stay a thin dispatcher, and a Parse
// function returning (config, shouldExit, err) rather than calling
// os.Exit itself.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	txtpp "github.com/Pistonite/txtpp"
	"github.com/Pistonite/txtpp/internal/config"
	"github.com/Pistonite/txtpp/internal/ppmode"
)

// projectFileName is the optional declarative run configuration file a
// root directory may carry (spec.md §6, SPEC_FULL.md's configuration
// section). CLI flags always override its fields.
const projectFileName = ".txtpp.hcl"

// ExitError carries the process exit code a parse failure or --help
// invocation should produce.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Args is a parsed command line: the resolved run configuration plus the
// root paths to preprocess.
type Args struct {
	Roots  []string
	Config txtpp.Config
}

// Parse processes args (excluding argv[0]). It returns (nil, true, nil)
// after printing help, (nil, false, err) on a usage error, and a
// populated Args otherwise.
func Parse(args []string, output io.Writer) (*Args, bool, error) {
	fs := flag.NewFlagSet("txtpp", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprint(output, `
txtpp - a text-file preprocessing engine.

Usage:
  txtpp [options] [PATH...]

Arguments:
  PATH...
    Files or directories to preprocess. Defaults to the current directory.

Options:
`)
		fs.PrintDefaults()
	}

	needed := fs.Bool("needed", false, "Only rewrite output files that would actually change.")
	verify := fs.Bool("verify", false, "Check outputs against disk without writing; fail on any difference.")
	clean := fs.Bool("clean", false, "Remove computed output files and temp side-effects instead of writing them.")
	recursive := fs.Bool("recursive", false, "Descend into subdirectories when a PATH is a directory.")
	jobs := fs.Int("jobs", 1, "Number of files to preprocess concurrently.")
	suffix := fs.String("suffix", ".txtpp", "Source file suffix.")
	noTrailingNewline := fs.Bool("no-trailing-newline", false, "Do not force a trailing newline onto output that lacks one.")
	shell := fs.String("shell", "", "Shell command used to run `run` directives, e.g. \"bash -c\". Empty selects the host default.")
	noColor := fs.Bool("no-color", false, "Disable colored progress output.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	modeCount := 0
	for _, b := range []*bool{needed, verify, clean} {
		if *b {
			modeCount++
		}
	}
	if modeCount > 1 {
		return nil, false, &ExitError{Code: 2, Message: "at most one of --needed, --verify, --clean may be given"}
	}

	roots := fs.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	cfg := txtpp.DefaultConfig()

	fileCfg, err := loadProjectConfig(roots[0])
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	applyFileConfig(&cfg, fileCfg)

	// CLI flags always override file config: only overwrite a field for
	// a flag the user actually passed, per spec.md §6.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	switch {
	case *needed:
		cfg.Mode = txtpp.InMemoryBuild
	case *verify:
		cfg.Mode = ppmode.Verify
	case *clean:
		cfg.Mode = ppmode.Clean
	}
	if set["recursive"] {
		cfg.Recursive = *recursive
	}
	if set["jobs"] {
		cfg.Jobs = *jobs
	}
	if set["suffix"] {
		cfg.Suffix = *suffix
	}
	if set["no-trailing-newline"] {
		cfg.TrailingNewline = !*noTrailingNewline
	}
	if set["no-color"] {
		cfg.Color = !*noColor
	}
	if set["shell"] {
		cfg.Shell = strings.Fields(*shell)
	}

	return &Args{Roots: roots, Config: cfg}, false, nil
}

// loadProjectConfig looks for a ".txtpp.hcl" file alongside root (or
// inside it, if root is a directory) and loads it, per spec.md §6's
// optional declarative run configuration. A missing file is not an
// error: the project file is entirely optional.
func loadProjectConfig(root string) (*config.FileConfig, error) {
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}
	return config.Load(filepath.Join(dir, projectFileName))
}

// applyFileConfig layers a project file's fields onto cfg. Every scalar
// field is a pointer in config.FileConfig (Shell is a slice), so an unset
// field in the file leaves cfg's default untouched.
func applyFileConfig(cfg *txtpp.Config, fileCfg *config.FileConfig) {
	if fileCfg == nil {
		return
	}
	if len(fileCfg.Shell) > 0 {
		cfg.Shell = fileCfg.Shell
	}
	if fileCfg.Recursive != nil {
		cfg.Recursive = *fileCfg.Recursive
	}
	if fileCfg.Jobs != nil {
		cfg.Jobs = *fileCfg.Jobs
	}
	if fileCfg.TrailingNewline != nil {
		cfg.TrailingNewline = *fileCfg.TrailingNewline
	}
	if fileCfg.Suffix != nil {
		cfg.Suffix = *fileCfg.Suffix
	}
	if fileCfg.Color != nil {
		cfg.Color = *fileCfg.Color
	}
}
