package fetch

import (
	"os"
	"path/filepath"
	"strings"
)

// ReadmeContent finds and reads a README-like file at the top of repoDir,
// case-insensitively. Returns "" when nothing readable is found.
func ReadmeContent(repoDir string) string {
	entries, err := os.ReadDir(repoDir)
	if err != nil {
		return ""
	}

	var readme string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), "readme") {
			readme = e.Name()
			break
		}
	}
	if readme == "" {
		return ""
	}

	data, err := os.ReadFile(filepath.Join(repoDir, readme))
	if err != nil {
		return ""
	}
	return string(data)
}

const summaryLimit = 300

// Summary derives a short plain-text summary from the repository README:
// badge lines are skipped, heading markers stripped, and the remainder
// joined and cut at a fixed length. Used as the fallback when no model
// summary is available.
func Summary(repoDir string) string {
	content := ReadmeContent(repoDir)
	if content == "" {
		return ""
	}

	var clean []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Badge rows carry no prose
		if strings.HasPrefix(line, "[!") {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" {
			clean = append(clean, line)
		}
	}

	summary := strings.Join(clean, " ")
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit] + "..."
	}
	return summary
}
