package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitpress/internal/store"
	"gitpress/internal/types"
)

// fakeCloner records clone calls and materializes a minimal checkout.
type fakeCloner struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	live  atomic.Int32
	peak  atomic.Int32
}

func (f *fakeCloner) CloneOrUpdate(ctx context.Context, url, destPath string) bool {
	n := f.live.Add(1)
	defer f.live.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.fail[url] {
		return false
	}
	writeRepoFile(destPath, "README.md", "# fake repo\nDoes fake things.")
	return true
}

func writeRepoFile(dir, rel, content string) {
	_ = os.MkdirAll(dir, 0o755)
	_ = os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunSkipsKnownAndBatchDuplicates(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreatePullRecord(&types.PullRecord{URL: "u-known", RepoFullName: "a/known"}))

	cloner := &fakeCloner{}
	sched := NewScheduler(st, cloner, nil, t.TempDir())
	items := []Item{
		{URL: "u-known", RepoFullName: "a/known"},
		{URL: "u-new", RepoFullName: "b/new"},
		{URL: "u-new", RepoFullName: "b/new"},
		{URL: ""},
	}

	out, err := sched.Run(context.Background(), items, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, out.Skipped)
	require.Equal(t, 1, out.Accepted)
	require.Equal(t, 1, out.Cloned)
	require.Equal(t, []string{"u-new"}, cloner.calls)
}

func TestRunIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	cloner := &fakeCloner{}
	sched := NewScheduler(st, cloner, nil, t.TempDir())
	items := []Item{{URL: "u1", RepoFullName: "a/a"}}

	_, err := sched.Run(context.Background(), items, 1, 0)
	require.NoError(t, err)
	out, err := sched.Run(context.Background(), items, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 0, out.Accepted)
	require.Equal(t, 1, out.Skipped)
	require.Len(t, cloner.calls, 1, "second run clones nothing")
}

func TestRunSequentialOrderAndWriteback(t *testing.T) {
	st := openTestStore(t)
	cloner := &fakeCloner{fail: map[string]bool{"u2": true}}
	sched := NewScheduler(st, cloner, nil, t.TempDir())
	items := []Item{
		{URL: "u1", RepoFullName: "a/a", Stars: 5},
		{URL: "u2", RepoFullName: "b/b"},
		{URL: "u3", RepoFullName: "c/c"},
	}

	out, err := sched.Run(context.Background(), items, 1, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2", "u3"}, cloner.calls, "input order preserved")
	require.Equal(t, 3, out.Accepted)
	require.Equal(t, 2, out.Cloned)
	require.Equal(t, 1, out.Failed)

	// Each record carries its own outcome.
	ok, err := st.ResolveRecord("a/a")
	require.NoError(t, err)
	require.Equal(t, types.PullCloned, ok.ResultStatus)
	require.NotEmpty(t, ok.Detail, "README captured as detail")
	require.Positive(t, ok.TokenCount)

	bad, err := st.ResolveRecord("b/b")
	require.NoError(t, err)
	require.Equal(t, types.PullFailed, bad.ResultStatus)
}

func TestRunConcurrencyBounded(t *testing.T) {
	st := openTestStore(t)
	cloner := &fakeCloner{}
	sched := NewScheduler(st, cloner, nil, t.TempDir())

	var items []Item
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		items = append(items, Item{URL: u, RepoFullName: "x/" + u})
	}

	out, err := sched.Run(context.Background(), items, 2, 0)
	require.NoError(t, err)
	require.Equal(t, 6, out.Cloned)
	require.LessOrEqual(t, cloner.peak.Load(), int32(2), "worker pool stays bounded")
}

func TestRunDelaysBeforeFirstItem(t *testing.T) {
	st := openTestStore(t)
	cloner := &fakeCloner{}
	sched := NewScheduler(st, cloner, nil, t.TempDir())
	items := []Item{
		{URL: "u1", RepoFullName: "a/a"},
		{URL: "u2", RepoFullName: "b/b"},
	}

	delay := 30 * time.Millisecond
	start := time.Now()
	out, err := sched.Run(context.Background(), items, 1, delay)
	require.NoError(t, err)
	require.Equal(t, 2, out.Cloned)
	require.GreaterOrEqual(t, time.Since(start), 2*delay,
		"every item waits out the delay, the first included")
}

func TestRunCancelledContext(t *testing.T) {
	st := openTestStore(t)
	cloner := &fakeCloner{}
	sched := NewScheduler(st, cloner, nil, t.TempDir())
	items := []Item{
		{URL: "u1", RepoFullName: "a/a"},
		{URL: "u2", RepoFullName: "b/b"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sched.Run(ctx, items, 1, time.Hour)
	require.Error(t, err)
	require.Empty(t, cloner.calls, "nothing fetched once the context is gone")
}

func TestFullNameFromURL(t *testing.T) {
	require.Equal(t, "owner/repo", fullNameFromURL("https://github.com/owner/repo.git"))
	require.Equal(t, "owner/repo", fullNameFromURL("https://github.com/owner/repo/"))
	require.Equal(t, "repo", fullNameFromURL("repo"))
}
