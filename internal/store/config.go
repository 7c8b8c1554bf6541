package store

import (
	"database/sql"
	"fmt"
	"time"

	"gitpress/internal/types"
)

// LatestModelConfig returns the newest model configuration row, or ErrNotFound
// when none has been saved. The newest row wins during config resolution.
func (s *Store) LatestModelConfig() (*types.ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, provider, base_url, model, api_key, engine_version, word_limit, updated_at
		FROM model_config ORDER BY updated_at DESC, id DESC LIMIT 1`)

	var c types.ModelConfig
	err := row.Scan(&c.ID, &c.Provider, &c.BaseURL, &c.Model, &c.APIKey,
		&c.EngineVersion, &c.WordLimit, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan model config: %w", err)
	}
	return &c, nil
}

// SaveModelConfig appends a new configuration row. History is kept; readers
// always take the latest.
func (s *Store) SaveModelConfig(c *types.ModelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	res, err := s.db.Exec(`
		INSERT INTO model_config (provider, base_url, model, api_key, engine_version, word_limit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Provider, c.BaseURL, c.Model, c.APIKey, c.EngineVersion, c.WordLimit, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save model config: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}
