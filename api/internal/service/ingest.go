package service

import (
	"context"
	"errors"
	"fmt"
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"mashub/api/internal/repository"
	"mashub/pkg/clock"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IncomingWebhook struct {
	Body      []byte
	Signature string
	Timestamp string // header value, may be empty
	UserAgent string
	RemoteIP  string
}

type IngestResult struct {
	WebhookID string
	Processed bool
}

type VerifyPolicy struct {
	Secret           string
	Tolerance        time.Duration
	RequireTimestamp bool
}

type WebhookService struct {
	db         *gorm.DB
	repos      *repository.Repositories
	dispatcher Dispatcher
	retries    Retries
	notifier   Notifier
	clock      clock.Clock
	verify     VerifyPolicy
	jobTimeout time.Duration
	l          logger.Logger
}

func NewWebhookService(db *gorm.DB, repos *repository.Repositories, dispatcher Dispatcher, retries Retries, notifier Notifier, clock clock.Clock, verify VerifyPolicy, jobTimeout time.Duration, l logger.Logger) *WebhookService {
	return &WebhookService{
		db:         db,
		repos:      repos,
		dispatcher: dispatcher,
		retries:    retries,
		notifier:   notifier,
		clock:      clock,
		verify:     verify,
		jobTimeout: jobTimeout,
		l:          l,
	}
}

// Verify authenticates and parses a delivery without storing anything.
func (s *WebhookService) Verify(in IncomingWebhook) (*domain.Envelope, error) {
	if in.Signature == "" {
		return nil, domain.ErrMissingSignature
	}
	if !VerifySignature(in.Body, in.Signature, s.verify.Secret) {
		return nil, domain.ErrInvalidSignature
	}

	env, err := ParseEnvelope(in.Body)
	if err != nil {
		return nil, err
	}

	timestamp := in.Timestamp
	if timestamp == "" {
		timestamp = env.Timestamp.String()
	}
	if timestamp == "" {
		if s.verify.RequireTimestamp {
			return nil, fmt.Errorf("%w: timestamp is missing", domain.ErrInvalidTimestamp)
		}
		return env, nil
	}
	if !VerifyTimestamp(timestamp, s.verify.Tolerance, s.clock.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTimestamp, timestamp)
	}
	return env, nil
}

// Receive runs one delivery through verification, logging, dispatch and,
// on failure, retry scheduling. An error means nothing was processed:
// auth and parse errors store nothing, ErrLogPersistence means the log
// insert failed.
func (s *WebhookService) Receive(ctx context.Context, in IncomingWebhook) (*IngestResult, error) {
	env, err := s.Verify(in)
	if err != nil {
		return nil, err
	}

	log := &domain.WebhookLog{
		ID:                uuid.NewString(),
		EventType:         env.EventType,
		TransactionHash:   env.TxHashPtr(),
		Payload:           env.DataJSON(),
		SignatureVerified: true,
		UserAgent:         in.UserAgent,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.repos.WebhookLogs.Create(s.db.WithContext(ctx), log); err != nil {
		s.l.TemplWebhookErr("webhook log insert failed", logger.GenErrorId(), log.ID, env.EventType, in.RemoteIP, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrLogPersistence, err)
	}

	result := &IngestResult{WebhookID: log.ID}

	if dispatchWithTimeout(ctx, s.dispatcher, env, s.jobTimeout) {
		now := s.clock.Now()
		_, err := s.repos.WebhookLogs.MarkProcessed(s.db.WithContext(ctx), log.ID, now)
		if err == nil {
			result.Processed = true
			s.l.TemplWebhookInfo("webhook processed", log.ID, env.EventType, true)
			s.notify(ctx, domain.ProcessedEvent{
				WebhookID:       log.ID,
				EventType:       env.EventType,
				TransactionHash: env.TransactionHash,
				ProcessedAt:     now,
			})
			return result, nil
		}
		// side effects are idempotent, a retry re-applies them and marks the log
		s.l.TemplWebhookErr("mark processed failed", logger.GenErrorId(), log.ID, env.EventType, in.RemoteIP, err)
	}

	err = s.retries.ScheduleRetry(ctx, s.db, log.ID, string(in.Body), 0, domain.ErrMsgProcessingFailed)
	if err != nil {
		s.l.TemplWebhookErr("retry scheduling failed", logger.GenErrorId(), log.ID, env.EventType, in.RemoteIP, err)
		if markErr := s.repos.WebhookLogs.MarkFailed(s.db.WithContext(ctx), log.ID, domain.ErrMsgRetryScheduling+err.Error()); markErr != nil {
			s.l.TemplWebhookErr("terminal mark failed", logger.GenErrorId(), log.ID, env.EventType, in.RemoteIP, errors.Join(err, markErr))
		}
		return result, nil
	}

	s.l.TemplWebhookInfo("webhook queued for retry", log.ID, env.EventType, false)
	return result, nil
}

func (s *WebhookService) notify(ctx context.Context, ev domain.ProcessedEvent) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.l.Error("processed notification failed", logger.LS_NATS, false, "webhook_id", ev.WebhookID, "error", err)
	}
}
