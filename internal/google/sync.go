package google

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/report"
)

// Queue is the persistent task list drained by SyncWorker.
type Queue interface {
	DueSyncTasks(ctx context.Context, now time.Time, limit int) ([]db.SyncTask, error)
	CompleteSync(ctx context.Context, id int64) error
	FailSync(ctx context.Context, id int64, cause error, retryAt time.Time, maxRetries int) error
}

// SheetWriter receives booking rows and report snapshots.
type SheetWriter interface {
	UpsertBooking(ctx context.Context, b *models.Booking) error
	ExportReport(ctx context.Context, d *report.Data) error
}

// SyncWorker pushes queued bookings and reports to the spreadsheet with
// exponential backoff.
type SyncWorker struct {
	queue      Queue
	writer     SheetWriter
	interval   time.Duration
	batch      int
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewSyncWorker creates a worker polling every interval.
func NewSyncWorker(queue Queue, writer SheetWriter, interval time.Duration, log zerolog.Logger) *SyncWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SyncWorker{
		queue:      queue,
		writer:     writer,
		interval:   interval,
		batch:      20,
		maxRetries: 5,
		baseDelay:  time.Minute,
		now:        time.Now,
		log:        log.With().Str("component", "sheets_sync").Logger(),
	}
}

// Run processes the queue until ctx is done.
func (w *SyncWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("sync pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce handles every due task and returns how many succeeded.
func (w *SyncWorker) ProcessOnce(ctx context.Context) (int, error) {
	tasks, err := w.queue.DueSyncTasks(ctx, w.now(), w.batch)
	if err != nil {
		return 0, fmt.Errorf("load sync tasks: %w", err)
	}

	done := 0
	for _, task := range tasks {
		if err := w.handle(ctx, task); err != nil {
			retryAt := w.now().Add(w.retryDelay(task.RetryCount))
			w.log.Warn().Err(err).Int64("task_id", task.ID).Str("booking_id", task.BookingID).
				Int("retry", task.RetryCount+1).Time("retry_at", retryAt).Msg("sync task failed")
			if ferr := w.queue.FailSync(ctx, task.ID, err, retryAt, w.maxRetries); ferr != nil {
				return done, ferr
			}
			continue
		}
		if err := w.queue.CompleteSync(ctx, task.ID); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func (w *SyncWorker) handle(ctx context.Context, task db.SyncTask) error {
	switch task.TaskType {
	case db.TaskUpsertBooking:
		var b models.Booking
		if err := json.Unmarshal([]byte(task.Payload), &b); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if b.ID == "" {
			b.ID = task.BookingID
		}
		return w.writer.UpsertBooking(ctx, &b)
	case db.TaskExportReport:
		var d report.Data
		if err := json.Unmarshal([]byte(task.Payload), &d); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.writer.ExportReport(ctx, &d)
	default:
		return fmt.Errorf("unknown task type %q", task.TaskType)
	}
}

func (w *SyncWorker) retryDelay(retries int) time.Duration {
	d := w.baseDelay << min(retries, 6)
	return min(d, time.Hour)
}
