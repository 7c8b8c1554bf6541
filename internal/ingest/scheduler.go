// Package ingest discovers repositories and schedules their fetch. Every
// accepted item becomes a pull record whose final status reflects the
// clone outcome independently of its batch siblings.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gitpress/internal/fetch"
	"gitpress/internal/logging"
	"gitpress/internal/store"
	"gitpress/internal/types"
)

// Item is one repository discovered for ingestion.
type Item struct {
	URL          string
	RepoFullName string
	Stars        int
	Forks        int
}

// Outcome summarizes one scheduler run.
type Outcome struct {
	Accepted int // new records created
	Skipped  int // duplicates dropped before fetching
	Cloned   int
	Failed   int
}

// Cloner materializes a repository on disk. *fetch.Fetcher is the
// production implementation.
type Cloner interface {
	CloneOrUpdate(ctx context.Context, url, destPath string) bool
}

// Scheduler drives a batch of items through record creation, clone, and
// result write-back.
type Scheduler struct {
	store      *store.Store
	fetcher    Cloner
	summarizer *Summarizer
	reposDir   string
	mu         sync.Mutex
}

// NewScheduler builds a scheduler. summarizer may be nil; heuristic
// summaries are used then.
func NewScheduler(st *store.Store, fetcher Cloner, summarizer *Summarizer, reposDir string) *Scheduler {
	return &Scheduler{store: st, fetcher: fetcher, summarizer: summarizer, reposDir: reposDir}
}

// Run ingests items. URLs already present in the store, and repeats
// within the batch itself, are skipped. concurrency <= 1 processes items
// sequentially in input order; otherwise up to concurrency items are
// fetched at once. delay is inserted before every item, the first
// included, spacing out clone traffic and any summarization calls.
func (s *Scheduler) Run(ctx context.Context, items []Item, concurrency int, delay time.Duration) (*Outcome, error) {
	known, err := s.store.KnownURLs()
	if err != nil {
		return nil, fmt.Errorf("failed to load known urls: %w", err)
	}

	out := &Outcome{}
	var fresh []Item
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if _, dup := known[it.URL]; dup {
			logging.IngestDebug("skip %s: already recorded", it.URL)
			out.Skipped++
			continue
		}
		known[it.URL] = struct{}{}
		fresh = append(fresh, it)
	}
	logging.Ingest("ingesting %d items (%d duplicates skipped)", len(fresh), out.Skipped)

	if concurrency <= 1 {
		for _, it := range fresh {
			if !sleepCtx(ctx, delay) {
				return out, ctx.Err()
			}
			s.ingestOne(ctx, it, out)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, it := range fresh {
		if !sleepCtx(ctx, delay) {
			break
		}
		if gctx.Err() != nil {
			break
		}
		it := it
		g.Go(func() error {
			// One item failing must not abort the batch; failures land
			// in the item's own record instead.
			s.ingestOne(gctx, it, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// ingestOne creates the pending record, clones, and writes the result
// back to that record.
func (s *Scheduler) ingestOne(ctx context.Context, it Item, out *Outcome) {
	name := it.RepoFullName
	if name == "" {
		name = fullNameFromURL(it.URL)
	}
	savePath := filepath.Join(s.reposDir, strings.ReplaceAll(name, "/", "__"))

	rec := &types.PullRecord{
		URL:          it.URL,
		RepoFullName: name,
		SavePath:     savePath,
		Stars:        it.Stars,
		Forks:        it.Forks,
	}
	if err := s.store.CreatePullRecord(rec); err != nil {
		logging.IngestError("record creation failed for %s: %v", it.URL, err)
		s.countFailed(out)
		return
	}
	logging.RecordEvent(logging.Event{Type: logging.EventPullRecorded, Repo: name, Message: it.URL})

	if !s.fetcher.CloneOrUpdate(ctx, it.URL, savePath) {
		logging.IngestError("clone failed for %s", it.URL)
		logging.RecordEvent(logging.Event{Type: logging.EventPullFailed, Repo: name})
		if err := s.store.UpdatePullResult(rec.ID, types.PullFailed, 0, "", ""); err != nil {
			logging.IngestError("result write-back failed for record %d: %v", rec.ID, err)
		}
		s.countFailed(out)
		return
	}

	tokens := fetch.EstimateTokens(savePath)
	summary, detail := s.describe(ctx, savePath, name)
	if err := s.store.UpdatePullResult(rec.ID, types.PullCloned, tokens, summary, detail); err != nil {
		logging.IngestError("result write-back failed for record %d: %v", rec.ID, err)
		s.countFailed(out)
		return
	}
	logging.Ingest("cloned %s (~%d tokens)", name, tokens)
	logging.RecordEvent(logging.Event{Type: logging.EventPullCloned, Repo: name})
	s.countCloned(out)
}

func (s *Scheduler) describe(ctx context.Context, repoDir, name string) (summary, detail string) {
	if s.summarizer != nil {
		return s.summarizer.Describe(ctx, repoDir, name)
	}
	return fetch.Summary(repoDir), fetch.ReadmeContent(repoDir)
}

func (s *Scheduler) countCloned(out *Outcome) {
	s.mu.Lock()
	out.Accepted++
	out.Cloned++
	s.mu.Unlock()
}

func (s *Scheduler) countFailed(out *Outcome) {
	s.mu.Lock()
	out.Accepted++
	out.Failed++
	s.mu.Unlock()
}

// fullNameFromURL derives owner/name from a git URL, best effort.
func fullNameFromURL(url string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return trimmed
}

// sleepCtx sleeps for d unless ctx ends first. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// EnsureReposDir creates the clone root if missing.
func EnsureReposDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create repos dir %s: %w", dir, err)
	}
	return nil
}
