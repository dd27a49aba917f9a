package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/database"
	"mashub/pkg/utils"

	"gorm.io/gorm"
)

const (
	DEFAULT_LOGS_LIMIT = 50
	MAX_LOGS_LIMIT     = 500
)

func (s *RetryService) Stats(ctx context.Context) (*domain.RetryStats, error) {
	db := s.db.WithContext(ctx)

	var (
		stats domain.RetryStats
		err   error
	)
	if stats.Pending, err = s.repos.RetryJobs.Count(db); err != nil {
		return nil, fmt.Errorf("count retry jobs: %w", err)
	}
	if stats.TotalRetries, err = s.repos.RetryJobs.SumRetryCount(db); err != nil {
		return nil, fmt.Errorf("sum retry counts: %w", err)
	}
	if stats.Failed, err = s.repos.WebhookLogs.CountByState(db, domain.WEBHOOK_FAILED); err != nil {
		return nil, fmt.Errorf("count failed logs: %w", err)
	}
	if stats.Processed, err = s.repos.WebhookLogs.CountByState(db, domain.WEBHOOK_PROCESSED); err != nil {
		return nil, fmt.Errorf("count processed logs: %w", err)
	}
	return &stats, nil
}

// Logs lists webhook logs newest first, filtered by state when not empty.
func (s *RetryService) Logs(ctx context.Context, state domain.WebhookState, limit int) ([]domain.WebhookLog, error) {
	if limit <= 0 {
		limit = DEFAULT_LOGS_LIMIT
	}
	if limit > MAX_LOGS_LIMIT {
		limit = MAX_LOGS_LIMIT
	}
	return s.repos.WebhookLogs.List(s.db.WithContext(ctx), state, limit)
}

// Replay gives a terminally failed webhook a fresh retry budget. The
// envelope is rebuilt from the log, since the last job is gone.
func (s *RetryService) Replay(ctx context.Context, logID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		log, err := s.repos.WebhookLogs.Find(tx, logID)
		if err != nil {
			if database.IsNotFound(err) {
				return domain.ErrWebhookNotFound
			}
			return fmt.Errorf("find webhook log: %w", err)
		}
		if !log.IsTerminal() {
			return domain.ErrNotReplayable
		}

		payload, err := replayPayload(log)
		if err != nil {
			return fmt.Errorf("rebuild envelope: %w", err)
		}

		n, err := s.repos.WebhookLogs.ClearError(tx, logID)
		if err != nil {
			return fmt.Errorf("clear error: %w", err)
		}
		if n == 0 {
			return domain.ErrNotReplayable
		}

		if err := s.ScheduleRetry(ctx, tx, logID, payload, 0, domain.ErrMsgOperatorReplay); err != nil {
			return err
		}

		s.l.TemplWebhookInfo("webhook replay scheduled", logID, log.EventType, false)
		return nil
	})
}

func replayPayload(log *domain.WebhookLog) (string, error) {
	env := domain.Envelope{
		EventType: log.EventType,
		Data:      json.RawMessage(log.Payload),
	}
	if log.TransactionHash != nil {
		env.TransactionHash = *log.TransactionHash
	}

	return utils.MarshalString(env)
}
