package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitpress/internal/fetch"
	"gitpress/internal/ingest"
	"gitpress/internal/llm"
)

var (
	pullSearch      string
	pullLimit       int
	pullConcurrency int
	pullDelay       time.Duration
	pullNoSummarize bool
)

// pullCmd ingests repositories by URL or via GitHub search.
var pullCmd = &cobra.Command{
	Use:   "pull [url...]",
	Short: "Clone repositories and record them for article generation",
	Long: `Clones each repository, estimates its size, summarizes it, and stores
a pull record. URLs already recorded are skipped. With --search the
candidate list comes from the GitHub repository search API instead of
the command line.

Examples:
  gitpress pull https://github.com/owner/repo.git
  gitpress pull --search "language:go topic:cli" --limit 10 --concurrency 3`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullSearch, "search", "", "GitHub search query instead of explicit URLs")
	pullCmd.Flags().IntVar(&pullLimit, "limit", 10, "max search results to ingest")
	pullCmd.Flags().IntVar(&pullConcurrency, "concurrency", 1, "parallel clones")
	pullCmd.Flags().DurationVar(&pullDelay, "delay", 2*time.Second, "delay before each item's fetch")
	pullCmd.Flags().BoolVar(&pullNoSummarize, "no-summarize", false, "skip model summarization, use README heuristics")
}

func runPull(cmd *cobra.Command, args []string) error {
	if pullSearch == "" && len(args) == 0 {
		return fmt.Errorf("give repository URLs or --search")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var items []ingest.Item
	if pullSearch != "" {
		items, err = ingest.NewSearchClient().Search(ctx, pullSearch, pullLimit)
		if err != nil {
			return err
		}
		logger.Info("search complete", zap.String("query", pullSearch), zap.Int("items", len(items)))
	} else {
		for _, url := range args {
			items = append(items, ingest.Item{URL: url})
		}
	}

	if err := ingest.EnsureReposDir(reposDir()); err != nil {
		return err
	}

	var summarizer *ingest.Summarizer
	if !pullNoSummarize {
		if client, cerr := llm.NewFromConfig(resolveConfig(st)); cerr == nil {
			summarizer = ingest.NewSummarizer(client)
		} else {
			logger.Warn("summarization disabled", zap.Error(cerr))
		}
	}

	sched := ingest.NewScheduler(st, fetch.NewFetcher(), summarizer, reposDir())
	out, err := sched.Run(ctx, items, pullConcurrency, pullDelay)
	if out != nil {
		fmt.Printf("accepted %d, skipped %d duplicates, cloned %d, failed %d\n",
			out.Accepted, out.Skipped, out.Cloned, out.Failed)
	}
	return err
}
