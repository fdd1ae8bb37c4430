package source

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands glob patterns (with ** support) into absolute paths of
// regular files, deduplicated and sorted. Remote locations are passed
// through untouched. A pattern naming a directory matches the directory
// itself; callers that accept directories check with IsDir.
func Discover(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		if IsRemote(pattern) {
			add(pattern)
			continue
		}
		abs, err := absPattern(pattern)
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(abs)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() || info.IsDir() {
				add(filepath.Clean(m))
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// MatchesAny reports whether path matches one of the glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		abs, err := absPattern(pattern)
		if err != nil {
			continue
		}
		if ok, _ := doublestar.PathMatch(abs, path); ok {
			return true
		}
	}
	return false
}

// WatchDirs returns the directories that must be watched to notice new
// files matching patterns: the static prefix of each pattern.
func WatchDirs(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range patterns {
		if IsRemote(pattern) {
			continue
		}
		abs, err := absPattern(pattern)
		if err != nil {
			continue
		}
		// For a literal path the base is its parent directory.
		base, _ := doublestar.SplitPattern(filepath.ToSlash(abs))
		dir := filepath.FromSlash(base)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func absPattern(pattern string) (string, error) {
	if filepath.IsAbs(pattern) {
		return pattern, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, pattern), nil
}
