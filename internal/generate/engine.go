// Package generate turns a retrieval context into a finished article.
// Two strategies exist: a single budgeted pass, and a detailed pass that
// is condensed down afterwards. The engine version in the configuration
// picks between them.
package generate

import (
	"context"

	"gitpress/internal/config"
	"gitpress/internal/llm"
)

// Request carries everything an engine needs for one article.
type Request struct {
	// RepoName is the owner/name of the repository being written about.
	RepoName string
	// RepoDetail is the prose description of the repository.
	RepoDetail string
	// Context is the negotiated source context.
	Context string
	// WordLimit is the target length of the final article.
	WordLimit int
	// Feedback, when non-empty, marks this a revision of PriorContent.
	Feedback string
	// PriorContent is the previous article text for a revision.
	PriorContent string
}

// Result is the engine output. DetailedContent is only populated by the
// detail-then-condense strategy; ThinkingContent carries the provider's
// reasoning trace when one was returned.
type Result struct {
	FinalContent    string
	DetailedContent string
	ThinkingContent string
}

// Engine produces an article from a request.
type Engine interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Version() string
}

// NewEngine returns the engine selected by cfg.EngineVersion.
func NewEngine(cfg config.Config, client llm.ChatClient) Engine {
	if cfg.EngineVersion == config.EngineDirect {
		return &DirectEngine{client: client}
	}
	return &DetailCondenseEngine{client: client}
}
