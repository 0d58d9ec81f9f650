package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Dispatch enqueues a named task for a work item and returns its opaque
// handle. The handle is what the state machine records as the stage task ID.
func (s *Store) Dispatch(ctx context.Context, name, workID string) (string, error) {
	if name == "" {
		return "", errors.New("task name is empty")
	}
	if workID == "" {
		return "", errors.New("work id is empty")
	}

	handle := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO tasks (handle, work_id, name, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		handle,
		workID,
		name,
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return handle, nil
}

// ClaimNext atomically moves the oldest pending task to started and returns
// it. Returns (nil, nil) when nothing is pending.
func (s *Store) ClaimNext(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)

	var claimed *Task
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			StatusPending,
		)
		task, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("select pending task: %w", err)
		}

		now := time.Now().UTC()
		timestamp := now.Format(time.RFC3339Nano)
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ?, last_heartbeat = ? WHERE id = ? AND status = ?`,
			StatusStarted, timestamp, timestamp, task.ID, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("claim task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to another worker; caller polls again.
			claimed = nil
			return tx.Commit()
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit claim: %w", err)
		}
		task.Status = StatusStarted
		task.UpdatedAt = now
		task.LastHeartbeat = &now
		claimed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// GetByHandle fetches a task by its opaque handle. Returns (nil, nil) when
// the handle is unknown.
func (s *Store) GetByHandle(ctx context.Context, handle string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE handle = ?`, handle)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// MarkSuccess records a started task's completion along with an optional
// result payload.
func (s *Store) MarkSuccess(ctx context.Context, handle, resultJSON string) error {
	return s.finish(ctx, handle, StatusSuccess, "", resultJSON)
}

// MarkFailure records a started task's failure with its error message.
func (s *Store) MarkFailure(ctx context.Context, handle, errorMessage string) error {
	return s.finish(ctx, handle, StatusFailure, errorMessage, "")
}

func (s *Store) finish(ctx context.Context, handle string, status Status, errorMessage, resultJSON string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, error_message = ?, result_json = ?, updated_at = ?, last_heartbeat = NULL
         WHERE handle = ? AND status = ?`,
		status,
		nullableString(errorMessage),
		nullableString(resultJSON),
		timestamp,
		handle,
		StatusStarted,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s is not started", handle)
	}
	return nil
}

// UpdateHeartbeat stamps a started task as still alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, handle string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET last_heartbeat = ?, updated_at = ? WHERE handle = ? AND status = ?`,
		timestamp, timestamp, handle, StatusStarted,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s is not started", handle)
	}
	return nil
}

// ReclaimStale returns started tasks whose heartbeat predates the cutoff to
// pending so another worker can pick them up. Returns the number reclaimed.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusPending,
		timestamp,
		StatusStarted,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return res.RowsAffected()
}
