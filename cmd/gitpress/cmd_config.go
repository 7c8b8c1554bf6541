package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitpress/internal/config"
	"gitpress/internal/types"
)

var (
	cfgProvider  string
	cfgBaseURL   string
	cfgModel     string
	cfgAPIKey    string
	cfgEngine    string
	cfgWordLimit int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or persist model configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective model configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist a model configuration row",
	Long: `Stores a configuration row in the database. Stored rows take
precedence over the config file and environment; only the flags you
pass are overridden, the rest resolve as before.`,
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().StringVar(&cfgProvider, "provider", "", "provider (openai, deepseek, qwen)")
	configSetCmd.Flags().StringVar(&cfgBaseURL, "base-url", "", "API base URL override")
	configSetCmd.Flags().StringVar(&cfgModel, "model", "", "model name")
	configSetCmd.Flags().StringVar(&cfgAPIKey, "api-key", "", "API key")
	configSetCmd.Flags().StringVar(&cfgEngine, "engine", "", "engine version (v1 or v2)")
	configSetCmd.Flags().IntVar(&cfgWordLimit, "word-limit", 0, "article word budget")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := resolveConfig(st)
	fmt.Printf("provider:       %s\n", cfg.Provider)
	fmt.Printf("base_url:       %s\n", orDefault(cfg.BaseURL, "(provider default)"))
	fmt.Printf("model:          %s\n", orDefault(cfg.Model, "(provider default)"))
	fmt.Printf("api_key:        %s\n", maskKey(cfg.APIKey))
	fmt.Printf("engine_version: %s\n", cfg.EngineVersion)
	fmt.Printf("word_limit:     %d\n", cfg.WordLimit)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if cfgEngine != "" && cfgEngine != config.EngineDirect && cfgEngine != config.EngineDetailCondense {
		return fmt.Errorf("engine must be %s or %s", config.EngineDetailCondense, config.EngineDirect)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cfg := resolveConfig(st)
	row := &types.ModelConfig{
		Provider:      firstNonEmpty(cfgProvider, cfg.Provider),
		BaseURL:       firstNonEmpty(cfgBaseURL, cfg.BaseURL),
		Model:         firstNonEmpty(cfgModel, cfg.Model),
		APIKey:        firstNonEmpty(cfgAPIKey, cfg.APIKey),
		EngineVersion: firstNonEmpty(cfgEngine, cfg.EngineVersion),
		WordLimit:     cfg.WordLimit,
	}
	if cfgWordLimit > 0 {
		row.WordLimit = cfgWordLimit
	}
	if err := st.SaveModelConfig(row); err != nil {
		return err
	}
	fmt.Println("configuration saved")
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func maskKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
