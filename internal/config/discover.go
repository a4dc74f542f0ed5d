package config

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// Discover walks root and returns the paths selected by the patterns,
// in deterministic (sorted) order. Returned paths are relative to root
// and slash-separated.
func Discover(root string, patterns Patterns) ([]string, error) {
	if len(patterns.Include) == 0 {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := patterns.Match(rel)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
