package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"gitpress/internal/logging"
	"gitpress/internal/types"
)

// CreatePullRecord inserts a new pull record. PullTime defaults to now,
// status to pending. Duplicate URLs are allowed transiently; the dedup
// sweep collapses them later.
func (s *Store) CreatePullRecord(r *types.PullRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ResultStatus == "" {
		r.ResultStatus = types.PullPending
	}
	if r.PullTime.IsZero() {
		r.PullTime = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT INTO pull_records (url, repo_full_name, save_path, result_status,
			stars, forks, token_count, summary, detail, pull_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.URL, r.RepoFullName, r.SavePath, string(r.ResultStatus),
		r.Stars, r.Forks, r.TokenCount, r.Summary, r.Detail, r.PullTime)
	if err != nil {
		return fmt.Errorf("failed to create pull record for %s: %w", r.URL, err)
	}
	r.ID, _ = res.LastInsertId()
	logging.StoreDebug("Created pull record %d for %s", r.ID, r.URL)
	return nil
}

// GetPullRecord returns the record with the given id, or ErrNotFound.
func (s *Store) GetPullRecord(id int64) (*types.PullRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(selectRecord+" WHERE id = ?", id)
	return scanRecord(row)
}

// ResolveRecord looks a record up by numeric id first, then by repo full name
// (latest pull wins). This mirrors how tasks reference their input.
func (s *Store) ResolveRecord(ref string) (*types.PullRecord, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.GetPullRecord(id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(selectRecord+`
		WHERE repo_full_name = ? ORDER BY pull_time DESC, id DESC LIMIT 1`, ref)
	return scanRecord(row)
}

// LatestPendingByURL returns the most recent pending record for a URL.
// The fetch worker updates exactly this record when the clone settles.
func (s *Store) LatestPendingByURL(url string) (*types.PullRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(selectRecord+`
		WHERE url = ? AND result_status = 'pending'
		ORDER BY pull_time DESC, id DESC LIMIT 1`, url)
	return scanRecord(row)
}

// KnownURLs returns the set of all URLs already recorded, for ingest dedup.
func (s *Store) KnownURLs() (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT DISTINCT url FROM pull_records")
	if err != nil {
		return nil, fmt.Errorf("failed to query known urls: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		known[url] = struct{}{}
	}
	return known, rows.Err()
}

// ListPullRecords returns records newest first, up to limit (0 = all).
func (s *Store) ListPullRecords(limit int) ([]*types.PullRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := selectRecord + " ORDER BY pull_time DESC, id DESC"
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pull records: %w", err)
	}
	defer rows.Close()

	var records []*types.PullRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// UpdatePullResult records the outcome of a fetch for one record.
// Summary and detail are only overwritten when non-empty.
func (s *Store) UpdatePullResult(id int64, status types.PullStatus, tokenCount int, summary, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE pull_records SET
			result_status = ?,
			token_count = ?,
			summary = CASE WHEN ? != '' THEN ? ELSE summary END,
			detail = CASE WHEN ? != '' THEN ? ELSE detail END
		WHERE id = ?`,
		string(status), tokenCount, summary, summary, detail, detail, id)
	if err != nil {
		return fmt.Errorf("failed to update pull record %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	logging.StoreDebug("Pull record %d -> %s (tokens=%d)", id, status, tokenCount)
	return nil
}

// DedupRecords removes duplicate records sharing a URL, keeping the most
// recent by (pull_time, id). Runs in a single transaction so a concurrent
// insert cannot slip between the snapshot and the deletes.
func (s *Store) DedupRecords() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin dedup transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM pull_records WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY url ORDER BY pull_time DESC, id DESC
				) AS rn FROM pull_records
			) WHERE rn = 1
		)`)
	if err != nil {
		return 0, fmt.Errorf("dedup delete failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit dedup: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("Dedup removed %d duplicate pull records", n)
	}
	return int(n), nil
}

const selectRecord = `
	SELECT id, url, repo_full_name, save_path, result_status,
		stars, forks, token_count, summary, detail, pull_time
	FROM pull_records`

func scanRecord(row rowScanner) (*types.PullRecord, error) {
	var r types.PullRecord
	var status string
	err := row.Scan(&r.ID, &r.URL, &r.RepoFullName, &r.SavePath, &status,
		&r.Stars, &r.Forks, &r.TokenCount, &r.Summary, &r.Detail, &r.PullTime)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pull record: %w", err)
	}
	r.ResultStatus = types.PullStatus(status)
	return &r, nil
}
