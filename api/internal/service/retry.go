package service

import (
	"context"
	"errors"
	"fmt"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"mashub/api/internal/repository"
	"mashub/pkg/clock"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	BatchSize  int
	JobTimeout time.Duration
	Lease      time.Duration
}

func PolicyFromConfig(c *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		Multiplier: c.Retry.Multiplier,
		MaxDelay:   c.Retry.MaxDelay,
		BatchSize:  c.Retry.BatchSize,
		JobTimeout: c.Retry.JobTimeout,
		Lease:      c.Retry.Lease,
	}
}

// Delay is min(base * multiplier^n, max). Overflow clamps to max.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}

	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(n))
	if math.IsNaN(d) || math.IsInf(d, 0) || d >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

type SweepReport struct {
	Due         int `json:"due"`
	Succeeded   int `json:"succeeded"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted"`
	Errors      int `json:"errors"`
}

type RetryService struct {
	db         *gorm.DB
	repos      *repository.Repositories
	dispatcher Dispatcher
	locker     Locker
	notifier   Notifier
	archiver   Archiver
	clock      clock.Clock
	policy     RetryPolicy
	l          logger.Logger
}

func NewRetryService(db *gorm.DB, repos *repository.Repositories, dispatcher Dispatcher, locker Locker, notifier Notifier, archiver Archiver, clock clock.Clock, policy RetryPolicy, l logger.Logger) *RetryService {
	return &RetryService{
		db:         db,
		repos:      repos,
		dispatcher: dispatcher,
		locker:     locker,
		notifier:   notifier,
		archiver:   archiver,
		clock:      clock,
		policy:     policy,
		l:          l,
	}
}

func (s *RetryService) Delay(n int) time.Duration {
	return s.policy.Delay(n)
}

// ScheduleRetry inserts the next attempt for a webhook log inside tx. A
// retryCount at or above the limit is dropped, not an error.
func (s *RetryService) ScheduleRetry(ctx context.Context, tx *gorm.DB, logID string, payload string, retryCount int, errMsg string) error {
	if retryCount >= s.policy.MaxRetries {
		s.l.Warn("retry limit reached, job dropped", logger.LS_RETRIES, false, "webhook_id", logID, "retry_count", retryCount)
		return nil
	}

	now := s.clock.Now()
	job := &domain.WebhookRetryJob{
		ID:           uuid.NewString(),
		WebhookLogID: logID,
		RetryCount:   retryCount,
		NextRetryAt:  now.Add(s.policy.Delay(retryCount)),
		Payload:      payload,
		CreatedAt:    now,
	}
	if errMsg != "" {
		job.ErrorMessage = &errMsg
	}

	if err := s.repos.RetryJobs.Create(tx.WithContext(ctx), job); err != nil {
		return fmt.Errorf("create retry job: %w", err)
	}

	s.l.TemplRetryInfo("retry scheduled", logID, retryCount, job.NextRetryAt)
	return nil
}

// ProcessPendingRetries runs one sweep: the oldest due jobs, one at a time.
// Only one sweep runs at a time across everything sharing the locker.
func (s *RetryService) ProcessPendingRetries(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	unlock, ok, err := s.locker.TryLock(ctx, SWEEP_LOCK_KEY, s.policy.Lease)
	if err != nil {
		return report, fmt.Errorf("sweep lease: %w", err)
	}
	if !ok {
		return report, domain.ErrSweepInProgress
	}
	defer unlock()

	jobs, err := s.repos.RetryJobs.Due(s.db.WithContext(ctx), s.clock.Now(), s.policy.BatchSize)
	if err != nil {
		return report, fmt.Errorf("load due jobs: %w", err)
	}
	report.Due = len(jobs)

	for _, job := range jobs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		outcome, err := s.processJob(ctx, job)
		if err != nil {
			report.Errors++
			s.l.TemplRetryErr("retry job failed", job.WebhookLogID, job.RetryCount, err)
			continue
		}

		switch outcome {
		case outcomeSucceeded:
			report.Succeeded++
		case outcomeRescheduled:
			report.Rescheduled++
		case outcomeExhausted:
			report.Exhausted++
		}
	}

	if report.Due > 0 {
		s.l.Info("retry sweep done", logger.LS_RETRIES, false,
			"due", report.Due, "succeeded", report.Succeeded, "rescheduled", report.Rescheduled,
			"exhausted", report.Exhausted, "errors", report.Errors)
	}
	return report, nil
}

type jobOutcome uint8

const (
	outcomeSucceeded jobOutcome = iota
	outcomeRescheduled
	outcomeExhausted
)

var errJobGone = errors.New("retry job already taken")

func (s *RetryService) processJob(ctx context.Context, job domain.WebhookRetryJob) (jobOutcome, error) {
	env, err := ParseEnvelope([]byte(job.Payload))
	if err != nil {
		s.l.TemplRetryErr("stored payload does not parse", job.WebhookLogID, job.RetryCount, err)
		return outcomeExhausted, s.exhaust(ctx, job, domain.ErrMsgInvalidRetryPayload)
	}

	if dispatchWithTimeout(ctx, s.dispatcher, env, s.policy.JobTimeout) {
		return outcomeSucceeded, s.succeed(ctx, job, env)
	}

	if job.RetryCount >= s.policy.MaxRetries-1 {
		return outcomeExhausted, s.exhaust(ctx, job, domain.ErrMsgMaxRetriesExceeded)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deleteJob(tx, job.ID); err != nil {
			return err
		}
		return s.ScheduleRetry(ctx, tx, job.WebhookLogID, job.Payload, job.RetryCount+1, domain.ErrMsgRetryAttemptFailed)
	})
	return outcomeRescheduled, err
}

func (s *RetryService) succeed(ctx context.Context, job domain.WebhookRetryJob, env *domain.Envelope) error {
	now := s.clock.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repos.WebhookLogs.MarkProcessed(tx, job.WebhookLogID, now); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		return s.deleteJob(tx, job.ID)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, domain.ProcessedEvent{
		WebhookID:       job.WebhookLogID,
		EventType:       env.EventType,
		TransactionHash: env.TransactionHash,
		Attempt:         job.RetryCount + 1,
		ProcessedAt:     now,
	})
	return nil
}

// exhaust removes the job, marks the log terminal and archives both.
func (s *RetryService) exhaust(ctx context.Context, job domain.WebhookRetryJob, reason string) error {
	var log *domain.WebhookLog

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.deleteJob(tx, job.ID); err != nil {
			return err
		}
		if err := s.repos.WebhookLogs.MarkFailed(tx, job.WebhookLogID, reason); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}

		found, err := s.repos.WebhookLogs.Find(tx, job.WebhookLogID)
		if err != nil {
			return fmt.Errorf("reload log: %w", err)
		}
		log = found
		return nil
	})
	if err != nil {
		return err
	}

	s.l.TemplRetryErr(reason, job.WebhookLogID, job.RetryCount, nil)

	letter := domain.DeadLetter{Log: *log, LastJob: job, ArchivedAt: s.clock.Now()}
	if err := s.archiver.Archive(ctx, letter); err != nil {
		s.l.TemplRetryErr("dead letter archive failed", job.WebhookLogID, job.RetryCount, err)
	}
	return nil
}

func (s *RetryService) deleteJob(tx *gorm.DB, id string) error {
	n, err := s.repos.RetryJobs.Delete(tx, id)
	if err != nil {
		return fmt.Errorf("delete retry job: %w", err)
	}
	if n == 0 {
		return errJobGone
	}
	return nil
}

func (s *RetryService) notify(ctx context.Context, ev domain.ProcessedEvent) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.l.Error("processed notification failed", logger.LS_NATS, false, "webhook_id", ev.WebhookID, "error", err)
	}
}

// RunSweeper sweeps every interval until ctx is done. Blocking.
func (s *RetryService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.l.Info("retry sweeper started", logger.LS_RETRIES, false, "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			s.l.Info("retry sweeper stopped", logger.LS_RETRIES, false)
			return
		case <-ticker.C:
		}

		if _, err := s.ProcessPendingRetries(ctx); err != nil {
			if errors.Is(err, domain.ErrSweepInProgress) || errors.Is(err, context.Canceled) {
				continue
			}
			s.l.Error("retry sweep failed", logger.LS_RETRIES, false, "error", err)
		}
	}
}
