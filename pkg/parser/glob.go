package parser

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExpandGlobs resolves log_sources entries into file paths.
//
// Entries keep their configured order and the matches of one pattern are in
// lexical order, so the loaded dataset has a stable record order. Directories
// matched by a wildcard are skipped. A path is listed once, at its first
// position, even when spelled differently ("./a.log" and "a.log"). An entry
// matching nothing is returned unchanged so the loader reports it as
// unopenable.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		key := filepath.Clean(path)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}

		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			add(m)
		}
	}

	return files, nil
}
