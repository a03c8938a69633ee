package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/prolinq/messaging-backend/internal/model"
)

// QueueRepositoryInterface defines the persistence operations of the delivery
// queue. Every status transition is a compare-and-set keyed on the job id and
// the expected prior statuses; the boolean result reports whether the caller
// won the transition.
type QueueRepositoryInterface interface {
	Enqueue(job *model.EmailJob) error
	GetByID(id int) (*model.EmailJob, error)
	NextReady() (*model.EmailJob, error)
	MarkSent(id int, at time.Time) (bool, error)
	MarkRetry(id int, errMsg string) (bool, error)
	MarkFailed(id int, errMsg string) (bool, error)
	Cancel(id int) (bool, error)
	CancelAllRemaining() (int, error)
	CountByStatus(status model.JobStatus) (int, error)
	CountSentSince(t time.Time) (int, error)
	CountFailedSince(t time.Time) (int, error)
	LastSentAt() (*time.Time, error)
	ListByStatus(statuses []model.JobStatus, limit int) ([]model.EmailJob, error)
	ListCreatedSince(t time.Time, statuses []model.JobStatus) ([]model.EmailJob, error)
	ListRecentTerminal(limit int) ([]model.EmailJob, error)
}

// QueueRepository is the concrete Postgres implementation.
type QueueRepository struct {
	DB *sql.DB
}

const jobColumns = `id, recipient, subject, text_content, html_content, email_type,
	user_id, status, retry_count, last_error, created_at, sent_at`

func scanJob(row interface{ Scan(...any) error }) (*model.EmailJob, error) {
	var j model.EmailJob
	err := row.Scan(&j.ID, &j.To, &j.Subject, &j.TextContent, &j.HTMLContent,
		&j.EmailType, &j.UserID, &j.Status, &j.RetryCount, &j.LastError,
		&j.CreatedAt, &j.SentAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Enqueue inserts a new pending job and fills in the generated ID.
func (r *QueueRepository) Enqueue(job *model.EmailJob) error {
	job.Status = model.JobPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	query := `
        INSERT INTO email_queue
        (recipient, subject, text_content, html_content, email_type, user_id, status, retry_count, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		job.To, job.Subject, job.TextContent, job.HTMLContent,
		job.EmailType, job.UserID, job.Status, job.CreatedAt,
	).Scan(&job.ID)
}

// GetByID fetches a job by ID; returns nil when not found.
func (r *QueueRepository) GetByID(id int) (*model.EmailJob, error) {
	query := `SELECT ` + jobColumns + ` FROM email_queue WHERE id = $1`
	j, err := scanJob(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// NextReady returns the oldest pending or retry job, FIFO by creation time,
// or nil when the queue is drained.
func (r *QueueRepository) NextReady() (*model.EmailJob, error) {
	query := `
        SELECT ` + jobColumns + `
        FROM email_queue
        WHERE status IN ('pending', 'retry')
        ORDER BY created_at ASC
        LIMIT 1
    `
	j, err := scanJob(r.DB.QueryRow(query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// MarkSent transitions pending/retry -> sent. Loses cleanly against a racing
// cancellation: the update matches zero rows and the caller is told so.
func (r *QueueRepository) MarkSent(id int, at time.Time) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_queue
        SET status = 'sent', sent_at = $2, last_error = NULL
        WHERE id = $1 AND status IN ('pending', 'retry')
    `, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkRetry transitions pending/retry -> retry, incrementing the retry count
// and recording the transient error.
func (r *QueueRepository) MarkRetry(id int, errMsg string) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_queue
        SET status = 'retry', retry_count = retry_count + 1, last_error = $2
        WHERE id = $1 AND status IN ('pending', 'retry')
    `, id, errMsg)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkFailed transitions pending/retry -> failed with the final error.
func (r *QueueRepository) MarkFailed(id int, errMsg string) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_queue
        SET status = 'failed', last_error = $2
        WHERE id = $1 AND status IN ('pending', 'retry')
    `, id, errMsg)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Cancel transitions pending/retry -> cancelled. Returns false when the job
// was already terminal, which the service surfaces as a conflict.
func (r *QueueRepository) Cancel(id int) (bool, error) {
	res, err := r.DB.Exec(`
        UPDATE email_queue
        SET status = 'cancelled'
        WHERE id = $1 AND status IN ('pending', 'retry')
    `, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelAllRemaining cancels every pending/retry job as a single atomic
// statement and reports the exact count.
func (r *QueueRepository) CancelAllRemaining() (int, error) {
	res, err := r.DB.Exec(`
        UPDATE email_queue
        SET status = 'cancelled'
        WHERE status IN ('pending', 'retry')
    `)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *QueueRepository) CountByStatus(status model.JobStatus) (int, error) {
	var n int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM email_queue WHERE status = $1`, status).Scan(&n)
	return n, err
}

// CountSentSince counts successful sends since t, used for the daily quota.
func (r *QueueRepository) CountSentSince(t time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(*) FROM email_queue
        WHERE status = 'sent' AND sent_at >= $1
    `, t).Scan(&n)
	return n, err
}

func (r *QueueRepository) CountFailedSince(t time.Time) (int, error) {
	var n int
	err := r.DB.QueryRow(`
        SELECT COUNT(*) FROM email_queue
        WHERE status = 'failed' AND created_at >= $1
    `, t).Scan(&n)
	return n, err
}

// LastSentAt returns the timestamp of the most recent successful send, or nil
// when nothing has been sent yet. The dispatcher derives its spacing from it,
// so rate limiting survives restarts.
func (r *QueueRepository) LastSentAt() (*time.Time, error) {
	var t time.Time
	err := r.DB.QueryRow(`
        SELECT sent_at FROM email_queue
        WHERE status = 'sent' AND sent_at IS NOT NULL
        ORDER BY sent_at DESC
        LIMIT 1
    `).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByStatus returns jobs in the given statuses, FIFO by creation time.
func (r *QueueRepository) ListByStatus(statuses []model.JobStatus, limit int) ([]model.EmailJob, error) {
	query := `
        SELECT ` + jobColumns + `
        FROM email_queue
        WHERE status = ANY($1)
        ORDER BY created_at ASC
        LIMIT $2
    `
	return r.queryJobs(query, pq.Array(statusStrings(statuses)), limit)
}

// ListCreatedSince returns jobs created since t in the given statuses.
func (r *QueueRepository) ListCreatedSince(t time.Time, statuses []model.JobStatus) ([]model.EmailJob, error) {
	query := `
        SELECT ` + jobColumns + `
        FROM email_queue
        WHERE created_at >= $1 AND status = ANY($2)
        ORDER BY created_at ASC
    `
	return r.queryJobs(query, t, pq.Array(statusStrings(statuses)))
}

// ListRecentTerminal returns the most recently created terminal jobs.
func (r *QueueRepository) ListRecentTerminal(limit int) ([]model.EmailJob, error) {
	query := `
        SELECT ` + jobColumns + `
        FROM email_queue
        WHERE status IN ('sent', 'failed', 'cancelled')
        ORDER BY created_at DESC
        LIMIT $1
    `
	return r.queryJobs(query, limit)
}

func (r *QueueRepository) queryJobs(query string, args ...any) ([]model.EmailJob, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []model.EmailJob{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func statusStrings(statuses []model.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
