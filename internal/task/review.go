package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitpress/internal/logging"
	"gitpress/internal/store"
	"gitpress/internal/types"
)

// Approve accepts a generated article. When exportDir is non-empty the
// article is written there as <owner>__<name>.md before the status
// flips, so an export failure leaves the task reviewable.
func (r *Runner) Approve(taskID, exportDir string) error {
	t, err := r.reviewable(taskID)
	if err != nil {
		return err
	}
	if exportDir != "" {
		if err := exportArticle(t, exportDir); err != nil {
			return err
		}
	}
	approved := types.TaskApproved
	if err := r.store.UpdateTask(taskID, store.TaskUpdate{Status: &approved}); err != nil {
		return err
	}
	logging.Task("task %s approved", taskID)
	logging.NewJobLog(taskID).Append("article approved")
	logging.RecordEvent(logging.Event{Type: logging.EventTaskApproved, TaskID: taskID, Repo: t.RepoName})
	return nil
}

// Reject parks a generated article as pending. Content is untouched;
// the reviewer may still revise or approve it later.
func (r *Runner) Reject(taskID string) error {
	if _, err := r.reviewable(taskID); err != nil {
		return err
	}
	pending := types.TaskPending
	if err := r.store.UpdateTask(taskID, store.TaskUpdate{Status: &pending}); err != nil {
		return err
	}
	logging.Task("task %s rejected, parked as %s", taskID, pending)
	logging.NewJobLog(taskID).Append("article rejected")
	logging.RecordEvent(logging.Event{Type: logging.EventTaskRejected, TaskID: taskID})
	return nil
}

// Revise records reviewer feedback, re-queues the task, and starts a
// revision run. The existing article stays on the task so the engine can
// revise it rather than start over.
func (r *Runner) Revise(ctx context.Context, taskID, feedback string) (*Handle, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("revision feedback is empty")
	}
	t, err := r.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TaskGenerated && t.Status != types.TaskPending {
		return nil, fmt.Errorf("task %s is %s, cannot revise", taskID, t.Status)
	}
	queued := types.TaskQueued
	if err := r.store.UpdateTask(taskID, store.TaskUpdate{
		Status:   &queued,
		Feedback: &feedback,
	}); err != nil {
		return nil, err
	}
	logging.Task("task %s re-queued for revision", taskID)
	logging.NewJobLog(taskID).Append("revision requested: %s", feedback)
	logging.RecordEvent(logging.Event{Type: logging.EventTaskRevised, TaskID: taskID, Message: feedback})
	return r.Start(ctx, taskID)
}

func (r *Runner) reviewable(taskID string) (*types.Task, error) {
	t, err := r.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != types.TaskGenerated {
		return nil, fmt.Errorf("task %s is %s, not %s", taskID, t.Status, types.TaskGenerated)
	}
	return t, nil
}

func exportArticle(t *types.Task, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	name := strings.ReplaceAll(t.RepoName, "/", "__")
	if name == "" {
		name = t.ID
	}
	path := filepath.Join(dir, name+".md")
	if err := os.WriteFile(path, []byte(t.Content), 0o644); err != nil {
		return fmt.Errorf("failed to export article: %w", err)
	}
	logging.Task("task %s exported to %s", t.ID, path)
	return nil
}
