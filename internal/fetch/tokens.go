package fetch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// 1 token approximates 4 chars of source text.
const charsPerToken = 4

// textExtensions is the allowlist of extensions counted toward the estimate.
var textExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".java": true, ".c": true, ".cpp": true, ".h": true, ".hpp": true,
	".md": true, ".txt": true, ".json": true, ".yml": true, ".yaml": true,
	".html": true, ".css": true, ".go": true, ".rs": true, ".php": true,
	".rb": true, ".sh": true, ".sql": true, ".xml": true, ".vue": true,
}

// excludedDirs are VCS, dependency, and build trees never worth counting.
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, "venv": true, ".venv": true,
	"__pycache__": true, "dist": true, "build": true, ".idea": true,
	".vscode": true, "target": true, "bin": true, "obj": true,
	"vendor": true,
}

// EstimateTokens walks the tree under dir and estimates its token count by
// summing character counts of readable text files. Unreadable files are
// skipped silently; the estimate never fails.
func EstimateTokens(dir string) int {
	if _, err := os.Stat(dir); err != nil {
		return 0
	}

	totalChars := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !textExtensions[ext] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		totalChars += len(data)
		return nil
	})

	return totalChars / charsPerToken
}
