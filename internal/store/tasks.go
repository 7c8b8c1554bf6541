package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gitpress/internal/logging"
	"gitpress/internal/types"
)

// CreateTask inserts a new task row. CreatedAt defaults to now, status to queued.
func (s *Store) CreateTask(t *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Status == "" {
		t.Status = types.TaskQueued
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO tasks (task_id, input_ref, repo_name, status, content, detailed_content,
			thinking_content, feedback, log_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.InputRef, t.RepoName, string(t.Status), t.Content, t.DetailedContent,
		t.ThinkingContent, t.Feedback, t.LogFile, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", t.ID, err)
	}
	logging.Store("Created task %s (input_ref=%s)", t.ID, t.InputRef)
	return nil
}

// GetTask returns the task with the given id, or ErrNotFound.
func (s *Store) GetTask(id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT task_id, input_ref, repo_name, status, content, detailed_content,
			thinking_content, feedback, log_file, created_at, started_at, finished_at
		FROM tasks WHERE task_id = ?`, id)
	return scanTask(row)
}

// TasksByStatus returns all tasks with the given status, newest first.
func (s *Store) TasksByStatus(status types.TaskStatus) ([]*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT task_id, input_ref, repo_name, status, content, detailed_content,
			thinking_content, feedback, log_file, created_at, started_at, finished_at
		FROM tasks WHERE status = ? ORDER BY created_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskUpdate describes a partial task mutation. Nil fields are left untouched,
// matching the runner's write-only-what-changed discipline.
type TaskUpdate struct {
	Status          *types.TaskStatus
	RepoName        *string
	Content         *string
	DetailedContent *string
	ThinkingContent *string
	Feedback        *string
	LogFile         *string
	StartedAt       *time.Time
	FinishedAt      *time.Time
}

// UpdateTask applies a partial update to the task with the given id.
func (s *Store) UpdateTask(id string, upd TaskUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []string
	var args []interface{}

	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.RepoName != nil {
		sets = append(sets, "repo_name = ?")
		args = append(args, *upd.RepoName)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.DetailedContent != nil {
		sets = append(sets, "detailed_content = ?")
		args = append(args, *upd.DetailedContent)
	}
	if upd.ThinkingContent != nil {
		sets = append(sets, "thinking_content = ?")
		args = append(args, *upd.ThinkingContent)
	}
	if upd.Feedback != nil {
		sets = append(sets, "feedback = ?")
		args = append(args, *upd.Feedback)
	}
	if upd.LogFile != nil {
		sets = append(sets, "log_file = ?")
		args = append(args, *upd.LogFile)
	}
	if upd.StartedAt != nil {
		// started_at is set at most once
		sets = append(sets, "started_at = COALESCE(started_at, ?)")
		args = append(args, *upd.StartedAt)
	}
	if upd.FinishedAt != nil {
		sets = append(sets, "finished_at = ?")
		args = append(args, *upd.FinishedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	res, err := s.db.Exec("UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE task_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	logging.StoreDebug("Updated task %s (%d fields)", id, len(sets))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var status string
	var started, finished sql.NullTime

	err := row.Scan(&t.ID, &t.InputRef, &t.RepoName, &status, &t.Content,
		&t.DetailedContent, &t.ThinkingContent, &t.Feedback, &t.LogFile,
		&t.CreatedAt, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Status = types.TaskStatus(status)
	if started.Valid {
		t.StartedAt = &started.Time
	}
	if finished.Valid {
		t.FinishedAt = &finished.Time
	}
	return &t, nil
}
