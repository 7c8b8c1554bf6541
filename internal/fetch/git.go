// Package fetch clones remote repositories to local paths and derives coarse
// metadata (README text, heuristic summaries, token estimates) from the
// checked-out tree. Failures degrade to boolean outcomes; callers decide
// what a failed fetch means.
package fetch

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gitpress/internal/logging"
)

// Fetcher clones or updates repositories with bounded retries.
type Fetcher struct {
	Retries     int           // attempts per git command
	BackoffBase time.Duration // first retry delay; doubles per attempt
	BackoffMax  time.Duration // cap on a single delay
}

// NewFetcher returns a Fetcher with the stock retry policy.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Retries:     3,
		BackoffBase: time.Second,
		BackoffMax:  16 * time.Second,
	}
}

// CloneOrUpdate makes destPath contain a checkout of url. An existing
// checkout is updated in place; otherwise a fresh shallow clone is made.
// Exhausting retries reports false, never an error: checkout is
// all-or-nothing from the caller's point of view.
func (f *Fetcher) CloneOrUpdate(ctx context.Context, url, destPath string) bool {
	if isCheckout(destPath) {
		logging.FetchDebug("Directory exists, pulling: %s", destPath)
		return f.runGit(ctx, destPath, "git", "-C", destPath, "pull")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		logging.FetchError("Cannot create parent dir for %s: %v", destPath, err)
		return false
	}
	logging.FetchDebug("Cloning new repo: %s", url)
	if f.runGit(ctx, "", "git", "clone", "--depth", "1", url, destPath) {
		return true
	}
	logging.FetchError("Git clone failed after retries: %s", url)
	return false
}

// isCheckout reports whether dir looks like an existing git checkout.
func isCheckout(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

// runGit executes one git command with retries and exponential backoff.
func (f *Fetcher) runGit(ctx context.Context, dir string, name string, args ...string) bool {
	retries := f.Retries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		cmd := exec.CommandContext(ctx, name, args...)
		if dir != "" {
			cmd.Dir = dir
		}
		out, err := cmd.CombinedOutput()
		if err == nil {
			return true
		}
		logging.FetchError("Git command failed (attempt %d/%d): %v -> %v: %s", attempt, retries, args, err, out)
		if attempt == retries {
			return false
		}

		delay := f.BackoffBase << uint(attempt-1)
		if f.BackoffMax > 0 && delay > f.BackoffMax {
			delay = f.BackoffMax
		}
		logging.FetchDebug("Retrying git command in %v", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
