package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestReadmeContentCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ReAdMe.markdown", "hello")
	require.Equal(t, "hello", ReadmeContent(dir))
}

func TestReadmeContentIgnoresNested(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "docs/README.md", "nested")
	require.Empty(t, ReadmeContent(dir), "only top-level READMEs count")
}

func TestReadmeContentMissing(t *testing.T) {
	require.Empty(t, ReadmeContent(t.TempDir()))
	require.Empty(t, ReadmeContent(filepath.Join(t.TempDir(), "nope")))
}

func TestSummaryStripsNoise(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "README.md", "# mytool\n\n[![build](badge.svg)](ci)\n\nDoes things fast.\n")
	s := Summary(dir)
	require.Equal(t, "mytool Does things fast.", s)
}

func TestSummaryTruncates(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "README.md", strings.Repeat("word ", 200))
	s := Summary(dir)
	require.Len(t, s, summaryLimit+3)
	require.True(t, strings.HasSuffix(s, "..."))
}

func TestEstimateTokens(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "main.go", strings.Repeat("a", 400))
	write(t, dir, "README.md", strings.Repeat("b", 400))
	write(t, dir, "image.png", strings.Repeat("c", 4000))
	write(t, dir, ".git/blob", strings.Repeat("d", 4000))
	write(t, dir, "node_modules/dep/index.js", strings.Repeat("e", 4000))

	require.Equal(t, 200, EstimateTokens(dir), "only text files outside excluded dirs count")
}

func TestEstimateTokensMissingDir(t *testing.T) {
	require.Zero(t, EstimateTokens(filepath.Join(t.TempDir(), "nope")))
}

func TestIsCheckout(t *testing.T) {
	dir := t.TempDir()
	require.False(t, isCheckout(dir))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.True(t, isCheckout(dir))
}

func TestIsCheckoutGitFileIsNotADir(t *testing.T) {
	// Worktrees and submodules keep a .git file; those are not treated
	// as plain checkouts.
	dir := t.TempDir()
	write(t, dir, ".git", "gitdir: elsewhere")
	require.False(t, isCheckout(dir))
}

func TestRunGitExhaustsRetries(t *testing.T) {
	f := &Fetcher{Retries: 3, BackoffBase: 20 * time.Millisecond, BackoffMax: time.Second}
	start := time.Now()
	ok := f.runGit(context.Background(), "", "git", "--not-a-real-flag")
	require.False(t, ok)
	// Two retries after the first attempt: 20ms then 40ms of backoff.
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond,
		"backoff delays are actually waited out")
}

func TestCloneOrUpdateBadURL(t *testing.T) {
	f := &Fetcher{Retries: 1, BackoffBase: time.Millisecond}
	dest := filepath.Join(t.TempDir(), "checkout")
	ok := f.CloneOrUpdate(context.Background(), "file:///nonexistent/repo.git", dest)
	require.False(t, ok)
}
