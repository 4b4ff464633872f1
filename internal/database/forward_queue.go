package database

import (
	"context"
	"fmt"
	"time"

	"quicktable/internal/models"
)

const forwardColumns = `id, task_type, reservation_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateForwardTask(ctx context.Context, task *models.ForwardTask) error {
	query := `INSERT INTO forward_queue (task_type, reservation_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := db.now()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.ReservationID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create forward task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetForwardTask(ctx context.Context, id int64) (*models.ForwardTask, error) {
	tasks, err := db.queryForwardTasks(ctx, `SELECT `+forwardColumns+` FROM forward_queue WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return &tasks[0], nil
}

// GetPendingForwardTasks returns due tasks, oldest first.
func (db *DB) GetPendingForwardTasks(ctx context.Context, limit int) ([]models.ForwardTask, error) {
	query := `SELECT ` + forwardColumns + ` FROM forward_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	return db.queryForwardTasks(ctx, query, db.now(), limit)
}

func (db *DB) GetFailedForwardTasks(ctx context.Context) ([]models.ForwardTask, error) {
	query := `SELECT ` + forwardColumns + ` FROM forward_queue WHERE status = 'failed' ORDER BY created_at DESC`
	return db.queryForwardTasks(ctx, query)
}

func (db *DB) UpdateForwardTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := db.now()

	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE forward_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE forward_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE forward_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update forward task status: %w", err)
	}
	return nil
}

// RequeueFailedForwardTask resets a failed task so the worker picks it up
// again with a fresh retry budget.
func (db *DB) RequeueFailedForwardTask(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE forward_queue SET status = 'pending', retry_count = 0, next_retry_at = NULL, processed_at = NULL
         WHERE id = ? AND status = 'failed'`, id)
	if err != nil {
		return fmt.Errorf("failed to requeue forward task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryForwardTasks(ctx context.Context, query string, args ...interface{}) ([]models.ForwardTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query forward tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.ForwardTask
	for rows.Next() {
		var t models.ForwardTask
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.ReservationID, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forward task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
