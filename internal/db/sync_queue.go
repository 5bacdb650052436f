package db

import (
	"context"
	"database/sql"
	"time"
)

// Sync task types.
const (
	TaskUpsertBooking = "upsert_booking"
	TaskExportReport  = "export_report"
)

// SyncTask is a pending spreadsheet update.
type SyncTask struct {
	ID         int64
	TaskType   string
	BookingID  string
	Payload    string
	RetryCount int
	LastError  string
	CreatedAt  time.Time
}

// EnqueueSync adds a task to the sync queue.
func (db *DB) EnqueueSync(ctx context.Context, taskType, bookingID, payload string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO sync_queue (task_type, booking_id, payload, status, created_at, next_retry_at)
		VALUES (?, ?, ?, 'pending', ?, ?)`,
		taskType, bookingID, payload, time.Now(), time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DueSyncTasks returns pending tasks whose retry time has come.
func (db *DB) DueSyncTasks(ctx context.Context, now time.Time, limit int) ([]SyncTask, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, task_type, booking_id, COALESCE(payload, ''), retry_count, COALESCE(last_error, ''), created_at
		FROM sync_queue
		WHERE status = 'pending' AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY id ASC
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SyncTask
	for rows.Next() {
		var t SyncTask
		if err := rows.Scan(&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.RetryCount, &t.LastError, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CompleteSync marks a task as processed.
func (db *DB) CompleteSync(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'done', processed_at = ?, last_error = NULL
		WHERE id = ?`, time.Now(), id)
	return err
}

// FailSync records an error and schedules a retry, or gives up after maxRetries.
func (db *DB) FailSync(ctx context.Context, id int64, cause error, retryAt time.Time, maxRetries int) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET
			retry_count = retry_count + 1,
			last_error = ?,
			next_retry_at = ?,
			status = CASE WHEN retry_count + 1 >= ? THEN 'failed' ELSE 'pending' END
		WHERE id = ?`, msg, retryAt, maxRetries, id)
	return err
}

// SyncQueueStats counts tasks by status.
func (db *DB) SyncQueueStats(ctx context.Context) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status sql.NullString
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status.String] = n
	}
	return out, rows.Err()
}
