package ingest

import (
	"context"
	"strings"

	"gitpress/internal/fetch"
	"gitpress/internal/llm"
	"gitpress/internal/logging"
)

const (
	summaryCharLimit = 50
	readmeSampleSize = 8000
)

// Summarizer produces the detail and one-line summary stored with a pull
// record. Both calls fall back to README heuristics when the model is
// unreachable, so ingestion never blocks on the provider.
type Summarizer struct {
	client llm.ChatClient
}

func NewSummarizer(client llm.ChatClient) *Summarizer {
	return &Summarizer{client: client}
}

// Describe returns (summary, detail) for the repository at repoDir.
func (s *Summarizer) Describe(ctx context.Context, repoDir, repoName string) (string, string) {
	readme := fetch.ReadmeContent(repoDir)
	detail := s.detailFrom(ctx, repoName, readme)
	if detail == "" {
		detail = readme
	}
	summary := s.summaryFrom(ctx, repoName, detail)
	if summary == "" {
		summary = fetch.Summary(repoDir)
	}
	return summary, detail
}

func (s *Summarizer) detailFrom(ctx context.Context, repoName, readme string) string {
	if s.client == nil || strings.TrimSpace(readme) == "" {
		return ""
	}
	sample := readme
	if len(sample) > readmeSampleSize {
		sample = sample[:readmeSampleSize]
	}
	prompt := "Based on the README below, describe what the repository " + repoName +
		" is and what it is used for, in a few factual paragraphs. Do not speculate beyond the README.\n\n" + sample
	comp, err := s.client.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, 0)
	if err != nil {
		logging.IngestDebug("detail summarization failed for %s: %v", repoName, err)
		return ""
	}
	return strings.TrimSpace(comp.Text)
}

func (s *Summarizer) summaryFrom(ctx context.Context, repoName, detail string) string {
	if s.client == nil || strings.TrimSpace(detail) == "" {
		return ""
	}
	prompt := "Condense the following description of " + repoName +
		" into a single phrase of at most 50 characters. Reply with the phrase only.\n\n" + detail
	comp, err := s.client.Complete(ctx, "", []llm.Message{{Role: "user", Content: prompt}}, 0)
	if err != nil {
		logging.IngestDebug("one-line summarization failed for %s: %v", repoName, err)
		return ""
	}
	line := strings.TrimSpace(comp.Text)
	line = strings.Trim(line, "\"'")
	if len(line) > summaryCharLimit {
		line = line[:summaryCharLimit]
	}
	return line
}
