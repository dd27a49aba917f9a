package service

import (
	"context"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/logger"
	"mashub/pkg/clock"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Webhook.Secret = testSecret
	cfg.Webhook.Tolerance = 5 * time.Minute
	cfg.Webhook.RequireTimestamp = true
	cfg.Retry.MaxRetries = 5
	cfg.Retry.BaseDelay = time.Second
	cfg.Retry.Multiplier = 2
	cfg.Retry.MaxDelay = 5 * time.Minute
	cfg.Retry.BatchSize = 10
	cfg.Retry.JobTimeout = 2 * time.Second
	cfg.Retry.Lease = time.Minute
	return &cfg
}

type memNotifier struct {
	mu     sync.Mutex
	events []domain.ProcessedEvent
}

func (n *memNotifier) Notify(_ context.Context, ev domain.ProcessedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *memNotifier) all() []domain.ProcessedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ProcessedEvent(nil), n.events...)
}

type memArchiver struct {
	mu      sync.Mutex
	letters []domain.DeadLetter
}

func (a *memArchiver) Archive(_ context.Context, letter domain.DeadLetter) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.letters = append(a.letters, letter)
	return nil
}

func (a *memArchiver) all() []domain.DeadLetter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.DeadLetter(nil), a.letters...)
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	clock    *clock.MockClock
	svc      *Services
	retries  *RetryService
	notifier *memNotifier
	archiver *memArchiver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.InitTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	env := &testEnv{
		db:       db,
		cfg:      testConfig(),
		clock:    clock.NewMock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		notifier: &memNotifier{},
		archiver: &memArchiver{},
	}
	env.svc = HewServices(db, logger.Nop(), env.cfg, Deps{
		Clock:    env.clock,
		Notifier: env.notifier,
		Archiver: env.archiver,
	})
	env.retries = env.svc.Retries.(*RetryService)
	return env
}

func (e *testEnv) incoming(body string) IncomingWebhook {
	return IncomingWebhook{
		Body:      []byte(body),
		Signature: Sign([]byte(body), testSecret),
		Timestamp: strconv.FormatInt(e.clock.Now().Unix(), 10),
		UserAgent: "MasChain-Webhook/1.0",
		RemoteIP:  "10.0.0.1",
	}
}

// sweepAfter moves the clock past any backoff and runs one sweep.
func (e *testEnv) sweepAfter(t *testing.T) SweepReport {
	t.Helper()
	e.clock.Advance(e.cfg.Retry.MaxDelay + time.Second)
	report, err := e.svc.Retries.ProcessPendingRetries(context.Background())
	require.NoError(t, err)
	return report
}

func (e *testEnv) findLog(t *testing.T, id string) *domain.WebhookLog {
	t.Helper()
	var log domain.WebhookLog
	require.NoError(t, e.db.Where("id = ?", id).First(&log).Error)
	return &log
}

func (e *testEnv) jobsFor(t *testing.T, id string) []domain.WebhookRetryJob {
	t.Helper()
	var jobs []domain.WebhookRetryJob
	require.NoError(t, e.db.Where("webhook_log_id = ?", id).Find(&jobs).Error)
	return jobs
}

func (e *testEnv) countLogs(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&domain.WebhookLog{}).Count(&n).Error)
	return n
}

type dispatchFunc func(ctx context.Context, env *domain.Envelope) bool

func (f dispatchFunc) Dispatch(ctx context.Context, env *domain.Envelope) bool { return f(ctx, env) }
