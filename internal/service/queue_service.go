package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prolinq/messaging-backend/internal/apperrors"
	"github.com/prolinq/messaging-backend/internal/events"
	"github.com/prolinq/messaging-backend/internal/model"
	"github.com/prolinq/messaging-backend/internal/repository"
)

// QueuePolicy is the injectable delivery policy. Defaults follow the
// provider-safe contract: one send per nine minutes, 140 per UTC day, one
// retry before a job goes failed.
type QueuePolicy struct {
	RateInterval time.Duration
	DailyLimit   int
	MaxRetries   int
	SendTimeout  time.Duration
	PollInterval time.Duration
}

// DefaultQueuePolicy returns the observed production policy.
func DefaultQueuePolicy() QueuePolicy {
	return QueuePolicy{
		RateInterval: 540 * time.Second,
		DailyLimit:   140,
		MaxRetries:   1,
		SendTimeout:  30 * time.Second,
		PollInterval: 30 * time.Second,
	}
}

// QueueStatus is the operator-facing snapshot of the delivery queue.
type QueueStatus struct {
	Pending          int        `json:"pending"`
	Retry            int        `json:"retry"`
	SentToday        int        `json:"sent_today"`
	FailedToday      int        `json:"failed_today"`
	DailyLimit       int        `json:"daily_limit"`
	RateLimitSeconds int        `json:"rate_limit_seconds"`
	RemainingToday   int        `json:"remaining_today"`
	NextSendTime     *time.Time `json:"next_send_time"`
	SMTPEnabled      bool       `json:"smtp_enabled"`
}

// QueueService owns the delivery queue: it is the sole writer of job status
// out of pending/retry, running a single timer-driven dispatcher loop.
// Administrative operations (enqueue, cancel, clear-all, status reads) run
// concurrently with the loop; every transition is a compare-and-set in the
// repository, so races resolve to exactly one winner.
type QueueService struct {
	Repo    repository.QueueRepositoryInterface
	Metrics repository.MetricsRepositoryInterface
	Sender  Sender
	Events  events.Publisher
	Policy  QueuePolicy
	Log     zerolog.Logger

	limiter *rate.Limiter
	Now     func() time.Time
}

// NewQueueService wires the dispatcher. Spacing survives restarts because
// DispatchOnce also checks the last persisted send, not just the in-process
// limiter.
func NewQueueService(
	repo repository.QueueRepositoryInterface,
	metrics repository.MetricsRepositoryInterface,
	sender Sender,
	publisher events.Publisher,
	policy QueuePolicy,
	log zerolog.Logger,
) *QueueService {
	if policy.RateInterval <= 0 {
		policy.RateInterval = 540 * time.Second
	}
	if policy.DailyLimit <= 0 {
		policy.DailyLimit = 140
	}
	if policy.SendTimeout <= 0 {
		policy.SendTimeout = 30 * time.Second
	}
	if policy.PollInterval <= 0 {
		policy.PollInterval = 30 * time.Second
	}
	s := &QueueService{
		Repo:    repo,
		Metrics: metrics,
		Sender:  sender,
		Events:  publisher,
		Policy:  policy,
		Log:     log,
		limiter: rate.NewLimiter(rate.Every(policy.RateInterval), 1),
		Now:     time.Now,
	}
	return s
}

// Enqueue adds a job in pending state. Enqueueing never blocks on quota;
// a full day simply leaves the job waiting for the window to roll over.
func (s *QueueService) Enqueue(job *model.EmailJob) error {
	if err := s.Repo.Enqueue(job); err != nil {
		return err
	}
	s.Log.Info().
		Int("job_id", job.ID).
		Str("email_type", string(job.EmailType)).
		Str("to", job.To).
		Msg("email queued")
	return nil
}

// Start runs the dispatcher loop until the context is cancelled.
func (s *QueueService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Policy.PollInterval)
	s.Log.Info().
		Dur("poll_interval", s.Policy.PollInterval).
		Dur("rate_interval", s.Policy.RateInterval).
		Int("daily_limit", s.Policy.DailyLimit).
		Msg("dispatcher started")
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.Log.Info().Msg("dispatcher stopped")
				return
			case <-ticker.C:
				if err := s.DispatchOnce(ctx); err != nil {
					s.Log.Error().Err(err).Msg("dispatch attempt failed")
				}
			}
		}
	}()
}

// DispatchOnce attempts exactly one dispatch: if quota remains, spacing
// allows, and a job is ready, it sends the oldest pending/retry job and
// records the outcome. A nil error means the attempt completed, whether or
// not anything was sent.
func (s *QueueService) DispatchOnce(ctx context.Context) error {
	now := s.Now()

	sentToday, err := s.Repo.CountSentSince(model.DayStart(now))
	if err != nil {
		return err
	}
	if sentToday >= s.Policy.DailyLimit {
		s.Log.Debug().Int("sent_today", sentToday).Msg("daily quota exhausted, dispatch paused")
		return nil
	}

	// Persisted spacing guards against restarts; the limiter guards the
	// running process.
	last, err := s.Repo.LastSentAt()
	if err != nil {
		return err
	}
	if last != nil && now.Sub(*last) < s.Policy.RateInterval {
		return nil
	}
	if !s.limiter.AllowN(now, 1) {
		return nil
	}

	job, err := s.Repo.NextReady()
	if err != nil || job == nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.Policy.SendTimeout)
	defer cancel()
	sendErr := s.Sender.Send(sendCtx, job)

	if sendErr == nil {
		won, err := s.Repo.MarkSent(job.ID, s.Now())
		if err != nil {
			return err
		}
		if !won {
			// A cancellation raced us after the provider accepted the mail.
			// The job stays cancelled; the recipient may still receive it.
			s.Log.Warn().Int("job_id", job.ID).Msg("job cancelled while dispatching")
			return nil
		}
		s.recordSent(job)
		return nil
	}

	if errors.Is(sendErr, apperrors.ErrSenderDisabled) {
		// Configuration error: retrying cannot succeed.
		return s.fail(job, sendErr)
	}

	// Transient failure, including send timeouts.
	if job.RetryCount >= s.Policy.MaxRetries {
		return s.fail(job, sendErr)
	}
	won, err := s.Repo.MarkRetry(job.ID, sendErr.Error())
	if err != nil {
		return err
	}
	if won {
		s.Log.Warn().
			Int("job_id", job.ID).
			Int("attempt", job.RetryCount+1).
			Err(sendErr).
			Msg("email marked for retry")
	}
	return nil
}

func (s *QueueService) recordSent(job *model.EmailJob) {
	s.Log.Info().
		Int("job_id", job.ID).
		Str("email_type", string(job.EmailType)).
		Str("to", job.To).
		Msg("email sent")
	if err := s.Metrics.RecordSent(model.DayStart(s.Now()), job.EmailType); err != nil {
		s.Log.Warn().Err(err).Msg("failed to update sent metric")
	}
	if err := s.Events.DeliveryUpdated(events.KindDeliverySent, job, ""); err != nil {
		s.Log.Warn().Err(err).Int("job_id", job.ID).Msg("failed to publish delivery event")
	}
}

func (s *QueueService) fail(job *model.EmailJob, cause error) error {
	won, err := s.Repo.MarkFailed(job.ID, cause.Error())
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	s.Log.Error().Int("job_id", job.ID).Err(cause).Msg("email failed")
	if err := s.Metrics.RecordFailed(model.DayStart(s.Now())); err != nil {
		s.Log.Warn().Err(err).Msg("failed to update failure metric")
	}
	if err := s.Events.DeliveryUpdated(events.KindDeliveryFailed, job, cause.Error()); err != nil {
		s.Log.Warn().Err(err).Int("job_id", job.ID).Msg("failed to publish delivery event")
	}
	return nil
}

// Status returns the operator snapshot. Reads are relaxed: counters may lag
// the dispatcher but never exceed real totals.
func (s *QueueService) Status() (*QueueStatus, error) {
	now := s.Now()
	dayStart := model.DayStart(now)

	pending, err := s.Repo.CountByStatus(model.JobPending)
	if err != nil {
		return nil, err
	}
	retry, err := s.Repo.CountByStatus(model.JobRetry)
	if err != nil {
		return nil, err
	}
	sentToday, err := s.Repo.CountSentSince(dayStart)
	if err != nil {
		return nil, err
	}
	failedToday, err := s.Repo.CountFailedSince(dayStart)
	if err != nil {
		return nil, err
	}

	status := &QueueStatus{
		Pending:          pending,
		Retry:            retry,
		SentToday:        sentToday,
		FailedToday:      failedToday,
		DailyLimit:       s.Policy.DailyLimit,
		RateLimitSeconds: int(s.Policy.RateInterval.Seconds()),
		RemainingToday:   max(0, s.Policy.DailyLimit-sentToday),
		SMTPEnabled:      s.Sender.Enabled(),
	}

	last, err := s.Repo.LastSentAt()
	if err != nil {
		return nil, err
	}
	if last != nil {
		if next := last.Add(s.Policy.RateInterval); next.After(now) {
			status.NextSendTime = &next
		}
	}
	return status, nil
}

// Cancel cancels a single pending/retry job. A job already dispatched (or
// otherwise terminal) yields a conflict, never a silent no-op.
func (s *QueueService) Cancel(id int) (*model.EmailJob, error) {
	job, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.NewNotFound("email job", strconv.Itoa(id))
	}

	won, err := s.Repo.Cancel(id)
	if err != nil {
		return nil, err
	}
	if !won {
		// Re-read for the real terminal status; the dispatcher may have won
		// between our read and the CAS.
		if cur, err := s.Repo.GetByID(id); err == nil && cur != nil {
			job = cur
		}
		return nil, apperrors.NewCancelConflict(id, string(job.Status))
	}

	job.Status = model.JobCancelled
	s.Log.Info().Int("job_id", id).Str("to", job.To).Msg("email cancelled")
	if err := s.Events.DeliveryUpdated(events.KindDeliveryCancelled, job, ""); err != nil {
		s.Log.Warn().Err(err).Int("job_id", id).Msg("failed to publish delivery event")
	}
	return job, nil
}

// ClearAllRemaining cancels every pending/retry job atomically as a set and
// returns the exact count cancelled.
func (s *QueueService) ClearAllRemaining() (int, error) {
	n, err := s.Repo.CancelAllRemaining()
	if err != nil {
		return 0, err
	}
	s.Log.Warn().Int("cancelled", n).Msg("bulk cancel of all remaining emails")
	return n, nil
}

// ListPending returns waiting jobs, FIFO.
func (s *QueueService) ListPending(limit int) ([]model.EmailJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Repo.ListByStatus([]model.JobStatus{model.JobPending, model.JobRetry}, limit)
}

// ListRemainingToday returns today's not-yet-sent jobs.
func (s *QueueService) ListRemainingToday() ([]model.EmailJob, error) {
	return s.Repo.ListCreatedSince(model.DayStart(s.Now()),
		[]model.JobStatus{model.JobPending, model.JobRetry, model.JobFailed})
}

// ListRecent returns the latest terminal jobs.
func (s *QueueService) ListRecent(limit int) ([]model.EmailJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Repo.ListRecentTerminal(limit)
}

// SendDirect bypasses the queue for operator test sends.
func (s *QueueService) SendDirect(ctx context.Context, to, subject, body string) error {
	if !s.Sender.Enabled() {
		return apperrors.ErrSenderDisabled
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.Policy.SendTimeout)
	defer cancel()
	return s.Sender.Send(sendCtx, &model.EmailJob{
		To:          to,
		Subject:     subject,
		TextContent: body,
		EmailType:   model.EmailTest,
	})
}

