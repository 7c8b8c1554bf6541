package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gitpress/internal/llm"
)

type cannedClient struct {
	replies []string
	err     error
	calls   int
}

func (c *cannedClient) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, maxTokens int) (*llm.Completion, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.calls > len(c.replies) {
		return nil, fmt.Errorf("unexpected call %d", c.calls)
	}
	return &llm.Completion{Text: c.replies[c.calls-1]}, nil
}

func (c *cannedClient) Model() string { return "canned" }

func TestDescribeUsesModel(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(dir, "README.md", "# widget\nA widget maker.")

	client := &cannedClient{replies: []string{
		"widget is a repository that makes widgets from raw material.",
		`"Makes widgets from raw material"`,
	}}
	summary, detail := NewSummarizer(client).Describe(context.Background(), dir, "a/widget")
	require.Equal(t, "widget is a repository that makes widgets from raw material.", detail)
	require.Equal(t, "Makes widgets from raw material", summary, "quotes stripped")
	require.Equal(t, 2, client.calls)
}

func TestDescribeTruncatesLongSummary(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(dir, "README.md", "# x\nsomething")

	long := "this one-line summary is far longer than the fifty character budget allows"
	client := &cannedClient{replies: []string{"detail text", long}}
	summary, _ := NewSummarizer(client).Describe(context.Background(), dir, "a/x")
	require.Len(t, summary, summaryCharLimit)
}

func TestDescribeFallsBackOnModelFailure(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(dir, "README.md", "# tool\nDoes useful things.")

	client := &cannedClient{err: fmt.Errorf("provider down")}
	summary, detail := NewSummarizer(client).Describe(context.Background(), dir, "a/tool")
	require.Contains(t, detail, "Does useful things.", "README stands in for the detail")
	require.NotEmpty(t, summary, "heuristic summary stands in")
}

func TestDescribeWithoutReadme(t *testing.T) {
	client := &cannedClient{}
	summary, detail := NewSummarizer(client).Describe(context.Background(), t.TempDir(), "a/bare")
	require.Empty(t, detail)
	require.Empty(t, summary)
	require.Zero(t, client.calls, "nothing to summarize, model never called")
}
