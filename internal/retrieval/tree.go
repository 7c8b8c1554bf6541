// Package retrieval builds a bounded textual context for a repository by
// letting the model pick which files it wants to read, a few at a time.
package retrieval

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const treeTruncatedMarker = "\n...(tree truncated)..."

// skippedDirs are never descended into when rendering a file tree.
var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	".venv":        true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".idea":        true,
	".vscode":      true,
}

// FileTree renders an indented directory listing of root, capped at limit
// characters. Hidden entries and well-known dependency directories are
// pruned. When the limit is reached the listing ends with a truncation
// marker so the model knows the view is partial.
func FileTree(root string, limit int) string {
	var b strings.Builder
	writeTree(&b, root, "", limit)
	out := b.String()
	if len(out) > limit {
		cut := limit - len(treeTruncatedMarker)
		if cut < 0 {
			cut = 0
		}
		out = out[:cut] + treeTruncatedMarker
	}
	return out
}

func writeTree(b *strings.Builder, dir, indent string, limit int) {
	if b.Len() > limit {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		// Directories first, then lexical. Keeps the top of the listing
		// structural even when the tail gets truncated.
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
	for _, e := range entries {
		if b.Len() > limit {
			return
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			if skippedDirs[name] {
				continue
			}
			b.WriteString(indent + name + "/\n")
			writeTree(b, filepath.Join(dir, name), indent+"  ", limit)
			continue
		}
		b.WriteString(indent + name + "\n")
	}
}
