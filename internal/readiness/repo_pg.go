package readiness

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateRun inserts a new readiness run.
func (r *PGRepo) CreateRun(ctx context.Context, run Run) error {
	const query = `
INSERT INTO readiness_runs (id, site_url, status, message, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5)`
	_, err := r.DB.ExecContext(ctx, query, run.ID, run.SiteURL, run.Status, run.Message, run.CreatedAt)
	return err
}

// GetRun returns a readiness run by ID.
func (r *PGRepo) GetRun(ctx context.Context, id string) (Run, error) {
	const query = `
SELECT id, site_url, status, message, recommendations, error_message, created_at, updated_at
FROM readiness_runs
WHERE id = $1
LIMIT 1`
	var run Run
	var message, recommendations, errorMessage sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.SiteURL, &run.Status, &message, &recommendations, &errorMessage, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	run.Message = message.String
	run.Recommendations = recommendations.String
	run.ErrorMessage = errorMessage.String
	return run, nil
}

// SetMessage updates the progress message of a processing run.
func (r *PGRepo) SetMessage(ctx context.Context, id, message string) error {
	const query = `
UPDATE readiness_runs
SET message = $1,
    updated_at = now()
WHERE id = $2::uuid`
	res, err := r.DB.ExecContext(ctx, query, message, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompleted marks the run done and stores the recommendations.
func (r *PGRepo) SetCompleted(ctx context.Context, id, recommendations string) error {
	const query = `
UPDATE readiness_runs
SET status = $1,
    recommendations = $2,
    message = 'analysis complete',
    updated_at = now()
WHERE id = $3::uuid`
	res, err := r.DB.ExecContext(ctx, query, StatusCompleted, recommendations, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFailed marks the run as terminally errored.
func (r *PGRepo) SetFailed(ctx context.Context, id, message string) error {
	const query = `
UPDATE readiness_runs
SET status = $1,
    error_message = $2,
    updated_at = now()
WHERE id = $3::uuid`
	res, err := r.DB.ExecContext(ctx, query, StatusError, message, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendLog appends one log entry. The BIGSERIAL id preserves append
// order even when timestamps collide.
func (r *PGRepo) AppendLog(ctx context.Context, entry LogEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO readiness_log_entries (run_id, step_id, step_name, outcome, response_time_ms, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.DB.ExecContext(ctx, query,
		entry.RunID, entry.StepID, entry.StepName, entry.Outcome, entry.ResponseTimeMs, detail, entry.CreatedAt,
	)
	return err
}

// ListLogs returns a run's entries in append order.
func (r *PGRepo) ListLogs(ctx context.Context, runID string) ([]LogEntry, error) {
	const query = `
SELECT id, run_id, step_id, step_name, outcome, response_time_ms, detail, created_at
FROM readiness_log_entries
WHERE run_id = $1
ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var responseTime sql.NullFloat64
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.StepID, &e.StepName, &e.Outcome, &responseTime, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		if responseTime.Valid {
			e.ResponseTimeMs = &responseTime.Float64
		}
		if detail.Valid {
			_ = json.Unmarshal([]byte(detail.String), &e.Detail)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
