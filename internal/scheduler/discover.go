package scheduler

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/Pistonite/txtpp/internal/pathkit"
)

// discoverRoots resolves the caller's roots (files or directories) into
// an ordered, de-duplicated list of absolute source paths, per spec.md
// §6: any file ending in suffix is a source; a directory root is walked
// shallowly unless recursive is set.
func discoverRoots(roots []string, suffix string, recursive bool) ([]pathkit.AbsPath, error) {
	seen := make(map[pathkit.AbsPath]struct{})
	var out []pathkit.AbsPath

	add := func(p pathkit.AbsPath) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	for _, root := range roots {
		abs, err := pathkit.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(string(abs))
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if pathkit.IsSource(string(abs), suffix) {
				add(abs)
			}
			continue
		}

		found, err := walkDir(string(abs), suffix, recursive)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(pathkit.AbsPath(f))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func walkDir(dir string, suffix string, recursive bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if recursive {
				sub, err := walkDir(full, suffix, recursive)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
			}
			continue
		}
		if pathkit.IsSource(full, suffix) {
			out = append(out, full)
		}
	}
	return out, nil
}
