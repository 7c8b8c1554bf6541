package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gitpress/internal/llm"
	"gitpress/internal/logging"
)

// BuilderConfig tunes the context negotiation. Zero fields are filled
// from DefaultBuilderConfig by NewBuilder.
type BuilderConfig struct {
	// MaxFiles caps how many paths a single model reply may request.
	MaxFiles int
	// MaxRounds caps the refinement rounds after the initial selection.
	MaxRounds int
	// ContextLimit is the hard ceiling on accumulated context chars.
	ContextLimit int
	// TreeLimit caps the rendered file tree.
	TreeLimit int
	// TailLimit is how much of the accumulated context is shown back to
	// the model when asking whether it wants more files.
	TailLimit int
	// TruncateOversize controls overflow handling. The default stops
	// adding files the moment one would push the context past
	// ContextLimit, so every included file stays whole. When true the
	// overflowing file is truncated to the remaining headroom instead.
	TruncateOversize bool
}

// DefaultBuilderConfig returns the tuning used in production.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MaxFiles:     10,
		MaxRounds:    3,
		ContextLimit: 60000,
		TreeLimit:    20000,
		TailLimit:    20000,
	}
}

// Context is the outcome of one negotiation.
type Context struct {
	// Text is the accumulated file contents with per-file delimiters.
	Text string
	// Files lists the repo-relative paths included, in read order.
	Files []string
	// Rounds is how many refinement rounds were consumed.
	Rounds int
}

// Builder negotiates a bounded context with the model: show it the file
// tree, let it name files, read them, then ask whether it wants more.
type Builder struct {
	client llm.ChatClient
	cfg    BuilderConfig
}

// NewBuilder returns a Builder using cfg. Zero fields in cfg are filled
// from DefaultBuilderConfig.
func NewBuilder(client llm.ChatClient, cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = def.ContextLimit
	}
	if cfg.TreeLimit <= 0 {
		cfg.TreeLimit = def.TreeLimit
	}
	if cfg.TailLimit <= 0 {
		cfg.TailLimit = def.TailLimit
	}
	return &Builder{client: client, cfg: cfg}
}

// Build runs the negotiation against the repository at repoPath. goal is
// the one-line description of what the context will be used for. The
// returned Context never exceeds cfg.ContextLimit characters and is valid
// even when the model asked for nothing.
func (b *Builder) Build(ctx context.Context, repoPath, goal string) (*Context, error) {
	tree := FileTree(repoPath, b.cfg.TreeLimit)
	logging.RetrievalDebug("file tree for %s: %d chars", repoPath, len(tree))

	reply, err := b.ask(ctx, initialSelectPrompt(goal, tree, b.cfg.MaxFiles))
	if err != nil {
		return nil, fmt.Errorf("initial file selection: %w", err)
	}

	out := &Context{}
	seen := make(map[string]bool)
	b.ingest(out, seen, repoPath, b.capPaths(ExtractPathList(reply)))

	for round := 1; round <= b.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(out.Text) >= b.cfg.ContextLimit {
			logging.Retrieval("context ceiling reached at %d chars, stopping", len(out.Text))
			break
		}
		reply, err := b.ask(ctx, refinePrompt(goal, tree, tail(out.Text, b.cfg.TailLimit), b.cfg.MaxFiles))
		if err != nil {
			return nil, fmt.Errorf("refinement round %d: %w", round, err)
		}
		out.Rounds = round
		paths := b.capPaths(ExtractPathList(reply))
		if len(paths) == 0 {
			logging.RetrievalDebug("round %d: model requested no files, done", round)
			break
		}
		if added := b.ingest(out, seen, repoPath, paths); added == 0 {
			logging.RetrievalDebug("round %d: no new files added, done", round)
			break
		}
	}
	logging.Retrieval("context built for %s: %d files, %d chars, %d rounds",
		repoPath, len(out.Files), len(out.Text), out.Rounds)
	return out, nil
}

func (b *Builder) ask(ctx context.Context, prompt string) (string, error) {
	comp, err := b.client.Complete(ctx, selectSystemPrompt, []llm.Message{
		{Role: "user", Content: prompt},
	}, 0)
	if err != nil {
		return "", err
	}
	return comp.Text, nil
}

func (b *Builder) capPaths(paths []string) []string {
	if len(paths) > b.cfg.MaxFiles {
		paths = paths[:b.cfg.MaxFiles]
	}
	return paths
}

// ingest reads each requested path and appends it to out. The first
// file that would overflow the context ceiling ends the batch; the rest
// of the requested paths are dropped. Returns how many files were added.
func (b *Builder) ingest(out *Context, seen map[string]bool, repoPath string, paths []string) int {
	added := 0
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		content, resolved, err := readRepoFile(repoPath, p)
		if err != nil {
			logging.RetrievalDebug("skip %s: %v", p, err)
			continue
		}
		block := fmt.Sprintf("--- File: %s ---\n%s\n\n", resolved, content)
		if len(out.Text)+len(block) > b.cfg.ContextLimit {
			if !b.cfg.TruncateOversize {
				logging.RetrievalDebug("stop at %s: would exceed context limit, dropping remaining requests", resolved)
				return added
			}
			room := b.cfg.ContextLimit - len(out.Text)
			if room <= 0 {
				return added
			}
			block = block[:room]
		}
		out.Text += block
		out.Files = append(out.Files, resolved)
		added++
	}
	return added
}

// readRepoFile reads path relative to root. Paths that escape root are
// rejected. When the path does not exist as given, a single file with the
// same base name is searched for anywhere under root; models frequently
// reply with a bare filename.
func readRepoFile(root, path string) (content, resolved string, err error) {
	clean := filepath.Clean(strings.TrimLeft(path, "/"))
	full := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("path %q escapes repository", path)
	}
	data, readErr := os.ReadFile(full)
	if readErr == nil {
		return string(data), filepath.ToSlash(rel), nil
	}
	found := findByBase(root, filepath.Base(clean))
	if found == "" {
		return "", "", fmt.Errorf("read %q: %w", path, readErr)
	}
	data, err = os.ReadFile(filepath.Join(root, found))
	if err != nil {
		return "", "", err
	}
	return string(data), filepath.ToSlash(found), nil
}

func findByBase(root, base string) string {
	var match string
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skippedDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if name == base {
			rel, relErr := filepath.Rel(root, p)
			if relErr == nil {
				match = rel
				return filepath.SkipAll
			}
		}
		return nil
	})
	return match
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
