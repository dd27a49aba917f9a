package repository

import (
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/database"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newLog(createdAt time.Time) *domain.WebhookLog {
	return &domain.WebhookLog{
		ID:                uuid.NewString(),
		EventType:         string(domain.EVENT_TOKEN_MINTED),
		Payload:           "{}",
		SignatureVerified: true,
		UserAgent:         gofakeit.UserAgent(),
		CreatedAt:         createdAt,
	}
}

func TestWebhookLogsLifecycle(t *testing.T) {
	db := testDB(t)
	r := InitWebhookLogsRepo()
	now := time.Now().UTC()

	log := newLog(now)
	require.NoError(t, r.Create(db, log))

	got, err := r.Find(db, log.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WEBHOOK_PENDING, got.State())

	_, err = r.Find(db, uuid.NewString())
	assert.True(t, database.IsNotFound(err))

	require.NoError(t, r.MarkFailed(db, log.ID, domain.ErrMsgMaxRetriesExceeded))
	got, err = r.Find(db, log.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTerminal())
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, domain.ErrMsgMaxRetriesExceeded, *got.ErrorMessage)

	n, err := r.ClearError(db, log.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.ClearError(db, log.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "only terminal logs are cleared")

	n, err = r.MarkProcessed(db, log.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = r.Find(db, log.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.NotNil(t, got.ProcessedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestWebhookLogsListAndCount(t *testing.T) {
	db := testDB(t)
	r := InitWebhookLogsRepo()
	base := time.Now().UTC().Add(-time.Hour)

	var ids []string
	for i := range 6 {
		log := newLog(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, r.Create(db, log))
		ids = append(ids, log.ID)
	}
	_, err := r.MarkProcessed(db, ids[0], base)
	require.NoError(t, err)
	_, err = r.MarkProcessed(db, ids[1], base)
	require.NoError(t, err)
	require.NoError(t, r.MarkFailed(db, ids[2], "boom"))

	counts := map[domain.WebhookState]int64{
		domain.WEBHOOK_PROCESSED: 2,
		domain.WEBHOOK_FAILED:    1,
		domain.WEBHOOK_PENDING:   3,
		"":                       6,
	}
	for state, want := range counts {
		n, err := r.CountByState(db, state)
		require.NoError(t, err)
		assert.Equal(t, want, n, state)
	}

	logs, err := r.List(db, "", 4)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	assert.Equal(t, ids[5], logs[0].ID, "newest first")

	logs, err = r.List(db, domain.WEBHOOK_FAILED, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ids[2], logs[0].ID)

	_, err = r.List(db, "bogus", 10)
	assert.Error(t, err)
}

func TestRetryJobsDueOrder(t *testing.T) {
	db := testDB(t)
	r := InitRetryJobsRepo()
	now := time.Now().UTC()

	mk := func(created time.Time, next time.Time, count int) *domain.WebhookRetryJob {
		job := &domain.WebhookRetryJob{
			ID:           uuid.NewString(),
			WebhookLogID: uuid.NewString(),
			RetryCount:   count,
			NextRetryAt:  next,
			Payload:      `{"event_type":"token_minted"}`,
			CreatedAt:    created,
		}
		require.NoError(t, r.Create(db, job))
		return job
	}

	second := mk(now.Add(-2*time.Minute), now.Add(-time.Second), 1)
	first := mk(now.Add(-3*time.Minute), now.Add(-time.Second), 0)
	mk(now.Add(-4*time.Minute), now.Add(time.Minute), 2) // not due yet

	jobs, err := r.Due(db, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)

	jobs, err = r.Due(db, now, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	count, err := r.Count(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	sum, err := r.SumRetryCount(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum)

	n, err := r.Delete(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := r.FindByLog(db, second.WebhookLogID)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSumRetryCountEmpty(t *testing.T) {
	db := testDB(t)
	sum, err := InitRetryJobsRepo().SumRetryCount(db)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestTokensConfirmIdempotent(t *testing.T) {
	db := testDB(t)
	r := InitTokensRepo()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&domain.Token{TxHash: "0xabc", Status: domain.TOKEN_PENDING}).Error)

	for range 2 {
		n, err := r.ConfirmByTxHash(db, "0xabc", now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	n, err := r.ConfirmByTxHash(db, "0xmissing", now)
	require.NoError(t, err)
	assert.Zero(t, n)

	var tok domain.Token
	require.NoError(t, db.Where("tx_hash = ?", "0xabc").First(&tok).Error)
	assert.Equal(t, domain.TOKEN_CONFIRMED, tok.Status)
	assert.NotNil(t, tok.ConfirmedAt)
}

func TestKYCComplete(t *testing.T) {
	db := testDB(t)
	r := InitKYCLogsRepo()

	require.NoError(t, db.Create(&domain.KYCLog{WalletAddress: "0xW"}).Error)

	n, err := r.CompleteByWallet(db, "0xW", decimal.RequireFromString("0.35"), true, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var kyc domain.KYCLog
	require.NoError(t, db.Where("wallet_address = ?", "0xW").First(&kyc).Error)
	assert.True(t, kyc.Verified)
	assert.True(t, kyc.RiskScore.Equal(decimal.RequireFromString("0.35")))
	assert.NotNil(t, kyc.VerifiedAt)
}

func TestCreateIfAbsent(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	txs := InitTransactionLogsRepo()
	n, err := txs.CreateIfAbsent(db, &domain.TransactionLog{TransactionHash: "0xT", Status: domain.TX_CONFIRMED, ConfirmedAt: now})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = txs.CreateIfAbsent(db, &domain.TransactionLog{TransactionHash: "0xT", Status: domain.TX_CONFIRMED, ConfirmedAt: now})
	require.NoError(t, err)
	assert.Zero(t, n)

	wallets := InitWalletLogsRepo()
	n, err = wallets.CreateIfAbsent(db, &domain.WalletLog{UserID: "u1", WalletAddress: "0xW", WalletType: domain.DEFAULT_WALLET_TYPE})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = wallets.CreateIfAbsent(db, &domain.WalletLog{UserID: "u2", WalletAddress: "0xW", WalletType: "custodial"})
	require.NoError(t, err)
	assert.Zero(t, n)

	var count int64
	require.NoError(t, db.Model(&domain.WalletLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
