// Package types provides shared type definitions used across gitpress packages.
// This package exists to break import cycles between store, task, and ingest.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import "time"

// =============================================================================
// TASK TYPES
// =============================================================================

// TaskStatus represents the lifecycle state of an article task.
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"     // Waiting to be picked up by a worker
	TaskProcessing TaskStatus = "processing" // A worker owns the task
	TaskGenerated  TaskStatus = "generated"  // Content produced, awaiting review
	TaskFailed     TaskStatus = "failed"     // Terminal; must be re-queued explicitly
	TaskApproved   TaskStatus = "approved"   // Review accepted; exits the pipeline
	TaskPending    TaskStatus = "pending"    // Review rejected; back to the pool
)

// Terminal reports whether the status ends a generation round.
func (s TaskStatus) Terminal() bool {
	return s == TaskGenerated || s == TaskFailed
}

// Task is one unit of article-production work.
// Mutated only by the task runner; readers never write back.
type Task struct {
	ID              string     `json:"id"`
	InputRef        string     `json:"input_ref"` // pull record id or repo full name
	RepoName        string     `json:"repo_name"`
	Status          TaskStatus `json:"status"`
	Content         string     `json:"content"`
	DetailedContent string     `json:"detailed_content"`
	ThinkingContent string     `json:"thinking_content"`
	Feedback        string     `json:"feedback"` // set only for revision rounds
	LogFile         string     `json:"log_file"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// =============================================================================
// PULL RECORD TYPES
// =============================================================================

// PullStatus represents the fetch outcome for one repository.
type PullStatus string

const (
	PullPending PullStatus = "pending"
	PullCloned  PullStatus = "cloned"
	PullFailed  PullStatus = "failed"
)

// PullRecord is the metadata and status for one fetched repository instance.
// URL is the dedup key; duplicates are collapsed keeping the latest PullTime.
type PullRecord struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	RepoFullName string     `json:"repo_full_name"`
	SavePath     string     `json:"save_path"`
	ResultStatus PullStatus `json:"result_status"`
	Stars        int        `json:"stars"`
	Forks        int        `json:"forks"`
	TokenCount   int        `json:"token_count"`
	Summary      string     `json:"summary"`
	Detail       string     `json:"detail"`
	PullTime     time.Time  `json:"pull_time"`
}

// =============================================================================
// MODEL CONFIG
// =============================================================================

// ModelConfig is one persisted model configuration row.
// The newest row (by UpdatedAt) wins during config resolution.
type ModelConfig struct {
	ID            int64     `json:"id"`
	Provider      string    `json:"provider"`
	BaseURL       string    `json:"base_url"`
	Model         string    `json:"model"`
	APIKey        string    `json:"api_key"`
	EngineVersion string    `json:"engine_version"` // "v1" detail-then-condense, "v2" direct
	WordLimit     int       `json:"word_limit"`
	UpdatedAt     time.Time `json:"updated_at"`
}
