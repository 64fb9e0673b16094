package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run records one preprocessing run of a single campaign.
type Run struct {
	ID         string
	Campaign   string
	Status     string
	Stats      string // JSON blob, empty until the run finishes
	StartedAt  time.Time
	FinishedAt *time.Time
}

// StartRun inserts a new running entry for campaign and returns it.
func (s *Store) StartRun(ctx context.Context, campaign string) (*Run, error) {
	r := &Run{
		ID:        uuid.New().String(),
		Campaign:  campaign,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, campaign, status, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Campaign, r.Status, r.StartedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "store: insert run for %s", campaign)
	}
	return r, nil
}

// FinishRun marks a run finished with the given status and stats payload.
func (s *Store) FinishRun(ctx context.Context, runID, status string, stats any) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "store: marshal run stats")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, finished_at = ? WHERE id = ?`,
		status, string(statsJSON), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "store: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: run not found: %s", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, campaign, status, stats, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var stats sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Campaign, &r.Status, &stats, &r.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		if stats.Valid {
			r.Stats = stats.String
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "store: iterate runs")
}
