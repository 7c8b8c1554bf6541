// Package task owns the article task lifecycle: queued tasks are picked
// up by a runner, driven through retrieval and generation, and land in a
// terminal or review state. Every state change is mirrored into the
// task's own job log.
package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gitpress/internal/config"
	"gitpress/internal/fetch"
	"gitpress/internal/generate"
	"gitpress/internal/llm"
	"gitpress/internal/logging"
	"gitpress/internal/retrieval"
	"gitpress/internal/store"
	"gitpress/internal/types"
)

// ErrAlreadyRunning is returned when a task already has a live worker.
var ErrAlreadyRunning = errors.New("task is already running")

// Runner executes tasks. Each started task gets its own goroutine; the
// in-flight map guarantees at most one worker per task id.
type Runner struct {
	store      *store.Store
	cfgFn      func() config.Config
	clientFn   func(config.Config) (llm.ChatClient, error)
	builderCfg retrieval.BuilderConfig

	mu       sync.Mutex
	inflight map[string]*Handle
}

// Handle supervises one running task.
type Handle struct {
	TaskID string
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Done is closed when the worker has finished and the task row settled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the worker error after Done is closed; nil on success.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Cancel aborts the worker. The task is marked failed by the worker
// itself on its way out.
func (h *Handle) Cancel() { h.cancel() }

// NewRunner builds a runner. clientFn may be nil, in which case clients
// are constructed from the resolved configuration.
func NewRunner(st *store.Store, cfgFn func() config.Config, clientFn func(config.Config) (llm.ChatClient, error)) *Runner {
	if clientFn == nil {
		clientFn = func(cfg config.Config) (llm.ChatClient, error) {
			return llm.NewFromConfig(cfg)
		}
	}
	return &Runner{
		store:      st,
		cfgFn:      cfgFn,
		clientFn:   clientFn,
		builderCfg: retrieval.DefaultBuilderConfig(),
		inflight:   make(map[string]*Handle),
	}
}

// Create makes a new queued task for an input reference (pull record id
// or owner/name) and returns it. The job log file name is fixed at
// creation so later reads need only the task row.
func (r *Runner) Create(inputRef string) (*types.Task, error) {
	t := &types.Task{
		ID:       newTaskID(),
		InputRef: inputRef,
		Status:   types.TaskQueued,
	}
	t.LogFile = logging.JobLogName(t.ID)
	if err := r.store.CreateTask(t); err != nil {
		return nil, err
	}
	logging.Task("created task %s for %s", t.ID, inputRef)
	logging.RecordEvent(logging.Event{Type: logging.EventTaskCreated, TaskID: t.ID, Message: inputRef})
	return t, nil
}

// Start launches the worker for a queued task. It returns
// ErrAlreadyRunning when the task already has a live worker, and an
// error when the task is not in a startable state.
func (r *Runner) Start(parent context.Context, taskID string) (*Handle, error) {
	t, err := r.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TaskQueued {
		return nil, fmt.Errorf("task %s is %s, not %s", taskID, t.Status, types.TaskQueued)
	}

	r.mu.Lock()
	if _, live := r.inflight[taskID]; live {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{TaskID: taskID, cancel: cancel, done: make(chan struct{})}
	r.inflight[taskID] = h
	r.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.inflight, taskID)
			r.mu.Unlock()
			close(h.done)
		}()
		err := r.run(ctx, t)
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
	}()
	return h, nil
}

// RunQueued drains all queued tasks sequentially, oldest first.
// Individual task failures are recorded on the task and do not stop the
// drain.
func (r *Runner) RunQueued(ctx context.Context) error {
	tasks, err := r.store.TasksByStatus(types.TaskQueued)
	if err != nil {
		return err
	}
	// TasksByStatus is newest first; drain in creation order.
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := r.Start(ctx, tasks[i].ID)
		if err != nil {
			if errors.Is(err, ErrAlreadyRunning) {
				continue
			}
			return err
		}
		<-h.Done()
	}
	return nil
}

// run drives one task from processing to a settled state. The returned
// error is also recorded on the task row, so callers may ignore it.
func (r *Runner) run(ctx context.Context, t *types.Task) error {
	jl := logging.NewJobLog(t.ID)
	now := time.Now()
	processing := types.TaskProcessing
	logFile := logging.JobLogName(t.ID)
	if err := r.store.UpdateTask(t.ID, store.TaskUpdate{
		Status:    &processing,
		StartedAt: &now,
		LogFile:   &logFile,
	}); err != nil {
		return err
	}
	jl.Append("task started (input %s)", t.InputRef)
	logging.RecordEvent(logging.Event{Type: logging.EventTaskStarted, TaskID: t.ID})

	result, repoName, err := r.produce(ctx, t, jl)
	if err != nil {
		jl.Append("task failed: %v", err)
		logging.TaskError("task %s failed: %v", t.ID, err)
		logging.RecordEvent(logging.Event{
			Type: logging.EventTaskFailed, TaskID: t.ID, Repo: repoName, Error: err.Error(),
		})
		r.settle(t.ID, types.TaskFailed, nil, repoName)
		return err
	}

	jl.Append("article generated (%d chars)", len(result.FinalContent))
	logging.Task("task %s generated %d chars", t.ID, len(result.FinalContent))
	logging.RecordEvent(logging.Event{Type: logging.EventTaskGenerated, TaskID: t.ID, Repo: repoName})
	r.settle(t.ID, types.TaskGenerated, result, repoName)
	return nil
}

// produce resolves the input, negotiates the context, and runs the
// engine. It never touches the task row.
func (r *Runner) produce(ctx context.Context, t *types.Task, jl *logging.JobLog) (*generate.Result, string, error) {
	rec, err := r.store.ResolveRecord(t.InputRef)
	if err != nil {
		return nil, "", fmt.Errorf("input %q: %w", t.InputRef, err)
	}
	repoName := rec.RepoFullName
	jl.Append("resolved input to record %d (%s)", rec.ID, repoName)

	detail := rec.Detail
	if detail == "" {
		detail = rec.Summary
	}
	if detail == "" {
		detail = fetch.ReadmeContent(rec.SavePath)
	}
	if detail == "" {
		return nil, repoName, fmt.Errorf("no repository detail found for %s", repoName)
	}

	cfg := r.cfgFn()
	client, err := r.clientFn(cfg)
	if err != nil {
		return nil, repoName, fmt.Errorf("client setup: %w", err)
	}

	var srcContext string
	if _, statErr := os.Stat(rec.SavePath); statErr == nil {
		builder := retrieval.NewBuilder(client, r.builderCfg)
		goal := fmt.Sprintf("write a technical article introducing %s", repoName)
		built, err := builder.Build(ctx, rec.SavePath, goal)
		if err != nil {
			return nil, repoName, fmt.Errorf("context build: %w", err)
		}
		jl.Append("context built: %d files, %d chars, %d rounds",
			len(built.Files), len(built.Text), built.Rounds)
		srcContext = built.Text
	} else {
		jl.Append("checkout %s missing, generating from stored detail only", rec.SavePath)
	}

	req := generate.Request{
		RepoName:   repoName,
		RepoDetail: detail,
		Context:    srcContext,
		WordLimit:  cfg.WordLimit,
	}
	if t.Feedback != "" && t.Content != "" {
		req.Feedback = t.Feedback
		req.PriorContent = t.Content
		jl.Append("revision run, applying reviewer feedback")
	}

	engine := generate.NewEngine(cfg, client)
	jl.Append("engine %s starting (model %s)", engine.Version(), client.Model())
	result, err := engine.Generate(ctx, req)
	if err != nil {
		return nil, repoName, err
	}
	return result, repoName, nil
}

// settle writes the terminal state. On failure the previous content is
// left in place so a failed revision does not destroy the reviewed
// article.
func (r *Runner) settle(taskID string, status types.TaskStatus, result *generate.Result, repoName string) {
	now := time.Now()
	upd := store.TaskUpdate{Status: &status, FinishedAt: &now}
	if repoName != "" {
		upd.RepoName = &repoName
	}
	if result != nil {
		upd.Content = &result.FinalContent
		upd.DetailedContent = &result.DetailedContent
		upd.ThinkingContent = &result.ThinkingContent
	}
	if err := r.store.UpdateTask(taskID, upd); err != nil {
		logging.TaskError("failed to settle task %s as %s: %v", taskID, status, err)
	}
}
