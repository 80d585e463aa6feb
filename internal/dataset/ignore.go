package dataset

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreFileName lists extra exclude patterns in a directory.
const ignoreFileName = ".nemaignore"

// ignoreFilter skips files by gitignore-style pattern.
type ignoreFilter struct {
	root    string
	matcher gitignore.Matcher
}

func newIgnoreFilter(root string, extra []string) *ignoreFilter {
	defaultPatterns := []string{
		".*",
		"*~",
		"*.tmp",
		"*.swp",
	}

	var patterns []gitignore.Pattern
	for _, p := range defaultPatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	for _, p := range extra {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	// Load .nemaignore if it exists
	if file, err := os.Open(filepath.Join(root, ignoreFileName)); err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}

	return &ignoreFilter{root: root, matcher: gitignore.NewMatcher(patterns)}
}

// ShouldIgnore reports whether path, under root, is excluded.
func (f *ignoreFilter) ShouldIgnore(path string, isDir bool) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return false
	}
	return f.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}
