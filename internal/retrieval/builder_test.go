package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gitpress/internal/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedClient replays canned replies and records the prompts it saw.
type scriptedClient struct {
	replies []string
	prompts []string
}

func (c *scriptedClient) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, maxTokens int) (*llm.Completion, error) {
	c.prompts = append(c.prompts, messages[len(messages)-1].Content)
	if len(c.prompts) > len(c.replies) {
		return nil, fmt.Errorf("unexpected call %d", len(c.prompts))
	}
	return &llm.Completion{Text: c.replies[len(c.prompts)-1]}, nil
}

func (c *scriptedClient) Model() string { return "scripted" }

func testRepo(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# demo\nA demo project.")
	writeFile(t, root, "src/main.go", "package main\n\nfunc main() {}\n")
	return root
}

func TestBuildTwoRounds(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{
		`["README.md"]`,
		`["src/main.go"]`,
		`[]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{}).Build(context.Background(), root, "introduce the project")
	require.NoError(t, err)
	require.Equal(t, []string{"README.md", "src/main.go"}, built.Files)
	require.Equal(t, 2, built.Rounds)
	require.Contains(t, built.Text, "--- File: README.md ---")
	require.Contains(t, built.Text, "--- File: src/main.go ---")
	require.Contains(t, built.Text, "A demo project.")

	// The refinement prompt shows what was already read.
	require.Len(t, client.prompts, 3)
	require.Contains(t, client.prompts[1], "README.md")
	require.Contains(t, client.prompts[0], "introduce the project")
}

func TestBuildStopsWhenNothingNewRequested(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{
		`["README.md"]`,
		`["README.md"]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"README.md"}, built.Files)
	require.Equal(t, 1, built.Rounds, "a round that adds nothing ends the loop")
}

func TestBuildStopsOnUnparsableReply(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{
		`["README.md"]`,
		`I have everything I need, thanks.`,
	}}

	built, err := NewBuilder(client, BuilderConfig{}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"README.md"}, built.Files)
	require.Equal(t, 1, built.Rounds)
}

func TestBuildRespectsRoundLimit(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, root, fmt.Sprintf("f%d.txt", i), "content")
	}
	client := &scriptedClient{replies: []string{
		`["f0.txt"]`, `["f1.txt"]`, `["f2.txt"]`, `["f3.txt"]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{MaxRounds: 3}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, 3, built.Rounds)
	require.Len(t, built.Files, 4, "initial selection plus three rounds")
}

func TestBuildOversizeFileStopsBatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "tiny")
	writeFile(t, root, "big.txt", strings.Repeat("x", 5000))
	writeFile(t, root, "other.txt", "also tiny")
	client := &scriptedClient{replies: []string{
		`["small.txt", "big.txt", "other.txt"]`,
		`[]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{ContextLimit: 1000}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"small.txt"}, built.Files, "overflow drops the file and everything after it")
	require.NotContains(t, built.Text, "xxx")
	require.LessOrEqual(t, len(built.Text), 1000)
}

func TestBuildTruncatesWhenConfigured(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", strings.Repeat("x", 5000))
	client := &scriptedClient{replies: []string{
		`["big.txt"]`,
		`[]`,
	}}

	cfg := BuilderConfig{ContextLimit: 1000, TruncateOversize: true}
	built, err := NewBuilder(client, cfg).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"big.txt"}, built.Files)
	require.Len(t, built.Text, 1000)
}

func TestNewBuilderFillsZeroFields(t *testing.T) {
	b := NewBuilder(&scriptedClient{}, BuilderConfig{ContextLimit: 1000})
	def := DefaultBuilderConfig()
	require.Equal(t, def.MaxFiles, b.cfg.MaxFiles)
	require.Equal(t, def.MaxRounds, b.cfg.MaxRounds)
	require.Equal(t, def.TreeLimit, b.cfg.TreeLimit)
	require.Equal(t, def.TailLimit, b.cfg.TailLimit)
	require.Equal(t, 1000, b.cfg.ContextLimit)
	require.False(t, b.cfg.TruncateOversize, "files are kept whole unless truncation is asked for")
}

func TestBuildCapsRequestedFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, root, fmt.Sprintf("f%d.txt", i), "content")
	}
	client := &scriptedClient{replies: []string{
		`["f0.txt","f1.txt","f2.txt","f3.txt","f4.txt"]`,
		`[]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{MaxFiles: 2}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Len(t, built.Files, 2)
}

func TestBuildBasenameFallback(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{
		`["main.go"]`,
		`[]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"src/main.go"}, built.Files, "bare filename resolved by search")
}

func TestBuildRejectsEscapingPaths(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{
		`["../../etc/passwd", "README.md"]`,
		`[]`,
	}}

	built, err := NewBuilder(client, BuilderConfig{}).Build(context.Background(), root, "goal")
	require.NoError(t, err)
	require.Equal(t, []string{"README.md"}, built.Files)
}

func TestBuildHonorsCancellation(t *testing.T) {
	root := testRepo(t)
	client := &scriptedClient{replies: []string{`["README.md"]`}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(client, BuilderConfig{}).Build(ctx, root, "goal")
	require.Error(t, err)
}
