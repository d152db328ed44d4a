// Package pathkit resolves source/output paths and sibling ".txtpp" files.
//
// Grounded on _examples/original_source/src/fs/path/{abs_path,mod}.rs and
// src/path/abs_path.rs: an absolute, canonical path type used as the key
// for dependency-graph nodes and the file-record map, plus the
// include/temp resolution rules from spec.md §4.4.
package pathkit

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultSuffix is the source-file suffix recognized when none is
// configured explicitly (spec.md §6).
const DefaultSuffix = ".txtpp"

// AbsPath is a cleaned absolute path used as the identity of a file
// throughout the scheduler and dependency graph. Two AbsPath values compare
// equal (as strings, and via ==) iff their cleaned absolute forms are
// identical; symlinks are not resolved, so two different AbsPath values
// can name the same file.
type AbsPath string

// Abs resolves p (absolute or relative to the current working directory)
// into an AbsPath.
func Abs(p string) (AbsPath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("pathkit: cannot make %q absolute: %w", p, err)
	}
	return AbsPath(filepath.Clean(abs)), nil
}

// Join resolves rel against dir (which must already be absolute) unless
// rel is itself absolute.
func Join(dir AbsPath, rel string) AbsPath {
	if filepath.IsAbs(rel) {
		return AbsPath(filepath.Clean(rel))
	}
	return AbsPath(filepath.Clean(filepath.Join(string(dir), rel)))
}

// Dir returns the directory containing p.
func (p AbsPath) Dir() AbsPath {
	return AbsPath(filepath.Dir(string(p)))
}

func (p AbsPath) String() string {
	return string(p)
}

// IsSource reports whether p ends in suffix.
func IsSource(p string, suffix string) bool {
	return strings.HasSuffix(p, suffix)
}

// OutputPath strips suffix from a source path, producing the path
// preprocessing writes to (spec.md §3, "at-most-one output per source").
func OutputPath(source string, suffix string) (string, error) {
	if !strings.HasSuffix(source, suffix) {
		return "", fmt.Errorf("pathkit: %q does not have the source suffix %q", source, suffix)
	}
	return strings.TrimSuffix(source, suffix), nil
}

// SiblingSource returns the ".txtpp"-suffixed sibling of target, and true,
// iff target does not itself end in suffix (an include target that is
// already a source file is read verbatim, never doubly preprocessed).
func SiblingSource(target string, suffix string) (string, bool) {
	if strings.HasSuffix(target, suffix) {
		return "", false
	}
	return target + suffix, true
}

// NormalizeForSubprocess strips Windows' extended-length ("verbatim")
// path prefix before handing a directory to exec.Command, which several
// shells choke on. It is a no-op on non-Windows hosts.
//
// Grounded on _examples/original_source/src/path/abs_path.rs, which
// performs the equivalent strip before spawning a child process.
func NormalizeForSubprocess(p string) string {
	if runtime.GOOS != "windows" {
		return p
	}
	const verbatim = `\\?\`
	if strings.HasPrefix(p, verbatim) {
		return p[len(verbatim):]
	}
	return p
}
