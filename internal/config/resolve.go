// Package config resolves the model/generation configuration from its
// fallback sources in one place. Precedence, highest first: the freshest
// persisted config row, the config file, environment variables, built-in
// defaults. Callers receive an immutable snapshot and never re-implement
// the chain.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gitpress/internal/logging"
	"gitpress/internal/types"

	"gopkg.in/yaml.v3"
)

// Engine versions selectable via EngineVersion.
const (
	EngineDetailCondense = "v1" // detailed pass, then condense to the budget
	EngineDirect         = "v2" // single budgeted call
)

// Defaults.
const (
	DefaultProvider      = "openai"
	DefaultEngineVersion = EngineDetailCondense
	DefaultWordLimit     = 8000
)

// Config is the resolved, immutable model configuration.
type Config struct {
	Provider      string `json:"provider" yaml:"provider"`
	BaseURL       string `json:"base_url" yaml:"base_url"`
	Model         string `json:"model" yaml:"model"`
	APIKey        string `json:"api_key" yaml:"api_key"`
	EngineVersion string `json:"engine_version" yaml:"engine_version"`
	WordLimit     int    `json:"word_limit" yaml:"word_limit"`
}

// ConfigStore is the slice of the record store the resolver needs.
type ConfigStore interface {
	LatestModelConfig() (*types.ModelConfig, error)
}

// Resolve builds the effective configuration. st and path may each be
// zero-valued; missing sources simply contribute nothing.
func Resolve(st ConfigStore, path string) Config {
	cfg := fromEnv(defaults())

	if fileCfg, err := loadFile(path); err == nil {
		cfg = overlay(cfg, fileCfg)
		logging.ConfigDebug("Loaded config file %s", path)
	} else if path != "" && !os.IsNotExist(err) {
		logging.Get(logging.CategoryConfig).Warn("Config file %s unreadable: %v", path, err)
	}

	if st != nil {
		if row, err := st.LatestModelConfig(); err == nil {
			cfg = overlay(cfg, Config{
				Provider:      row.Provider,
				BaseURL:       row.BaseURL,
				Model:         row.Model,
				APIKey:        row.APIKey,
				EngineVersion: row.EngineVersion,
				WordLimit:     row.WordLimit,
			})
			logging.ConfigDebug("Applied stored model config row %d", row.ID)
		}
	}

	return normalize(cfg)
}

func defaults() Config {
	return Config{
		Provider:      DefaultProvider,
		EngineVersion: DefaultEngineVersion,
		WordLimit:     DefaultWordLimit,
	}
}

func fromEnv(base Config) Config {
	env := Config{
		Provider: os.Getenv("GITPRESS_PROVIDER"),
		BaseURL:  os.Getenv("GITPRESS_BASE_URL"),
		Model:    os.Getenv("GITPRESS_MODEL"),
		APIKey:   os.Getenv("GITPRESS_API_KEY"),
	}
	if env.APIKey == "" {
		env.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("GITPRESS_ENGINE_VERSION"); v != "" {
		env.EngineVersion = v
	}
	if v := os.Getenv("GITPRESS_WORD_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			env.WordLimit = n
		}
	}
	return overlay(base, env)
}

// loadFile reads a JSON or YAML config file by extension.
func loadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse json config: %w", err)
		}
	}
	return cfg, nil
}

// overlay applies non-zero fields of top over base.
func overlay(base, top Config) Config {
	out := base
	if top.Provider != "" {
		out.Provider = top.Provider
	}
	if top.BaseURL != "" {
		out.BaseURL = top.BaseURL
	}
	if top.Model != "" {
		out.Model = top.Model
	}
	if top.APIKey != "" {
		out.APIKey = top.APIKey
	}
	if top.EngineVersion != "" {
		out.EngineVersion = top.EngineVersion
	}
	if top.WordLimit > 0 {
		out.WordLimit = top.WordLimit
	}
	return out
}

func normalize(cfg Config) Config {
	if cfg.EngineVersion != EngineDirect && cfg.EngineVersion != EngineDetailCondense {
		cfg.EngineVersion = DefaultEngineVersion
	}
	if cfg.WordLimit <= 0 {
		cfg.WordLimit = DefaultWordLimit
	}
	return cfg
}
