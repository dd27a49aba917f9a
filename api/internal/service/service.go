package service

import (
	"context"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/cache"
	"mashub/api/internal/logger"
	"mashub/api/internal/repository"
	"mashub/pkg/clock"
	"time"

	"gorm.io/gorm"
)

type Webhooks interface {
	Verify(in IncomingWebhook) (*domain.Envelope, error)
	Receive(ctx context.Context, in IncomingWebhook) (*IngestResult, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, env *domain.Envelope) bool
}

type Retries interface {
	Delay(n int) time.Duration
	ScheduleRetry(ctx context.Context, tx *gorm.DB, logID string, payload string, retryCount int, errMsg string) error
	ProcessPendingRetries(ctx context.Context) (SweepReport, error)
	// blocking
	RunSweeper(ctx context.Context, interval time.Duration)

	Stats(ctx context.Context) (*domain.RetryStats, error)
	Logs(ctx context.Context, state domain.WebhookState, limit int) ([]domain.WebhookLog, error)
	Replay(ctx context.Context, logID string) error
}

type Services struct {
	Webhooks   Webhooks
	Dispatcher Dispatcher
	Retries    Retries
}

// Deps are the optional backends. Nil fields fall back to in-process or
// no-op implementations.
type Deps struct {
	Clock    clock.Clock
	Locker   Locker
	Notifier Notifier
	Archiver Archiver
}

func HewServices(db *gorm.DB, l logger.Logger, config *config.Config, deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Locker == nil {
		deps.Locker = NewLockerService(cache.InitStorage())
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Archiver == nil {
		deps.Archiver = NopArchiver{}
	}

	repos := repository.New()
	policy := PolicyFromConfig(config)

	dispatcher := NewDispatcherService(db, repos, deps.Clock, l)
	retries := NewRetryService(db, repos, dispatcher, deps.Locker, deps.Notifier, deps.Archiver, deps.Clock, policy, l)

	verify := VerifyPolicy{
		Secret:           config.Webhook.Secret,
		Tolerance:        config.Webhook.Tolerance,
		RequireTimestamp: config.Webhook.RequireTimestamp,
	}

	return &Services{
		Webhooks:   NewWebhookService(db, repos, dispatcher, retries, deps.Notifier, deps.Clock, verify, policy.JobTimeout, l),
		Dispatcher: dispatcher,
		Retries:    retries,
	}
}
