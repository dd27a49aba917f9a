package repository

import (
	"mashub/api/internal/domain"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WebhookLogs interface {
	Create(tx *gorm.DB, log *domain.WebhookLog) error
	Find(tx *gorm.DB, id string) (*domain.WebhookLog, error)
	MarkProcessed(tx *gorm.DB, id string, at time.Time) (int64, error)
	MarkFailed(tx *gorm.DB, id string, errMsg string) error
	ClearError(tx *gorm.DB, id string) (int64, error)
	List(tx *gorm.DB, state domain.WebhookState, limit int) ([]domain.WebhookLog, error)
	CountByState(tx *gorm.DB, state domain.WebhookState) (int64, error)
}

type RetryJobs interface {
	Create(tx *gorm.DB, job *domain.WebhookRetryJob) error
	Due(tx *gorm.DB, now time.Time, limit int) ([]domain.WebhookRetryJob, error)
	Delete(tx *gorm.DB, id string) (int64, error)
	FindByLog(tx *gorm.DB, logID string) ([]domain.WebhookRetryJob, error)
	Count(tx *gorm.DB) (int64, error)
	SumRetryCount(tx *gorm.DB) (int64, error)
}

// Side effect stores. Updates match on natural keys and report affected
// rows; zero rows is not an error. Inserts ignore natural key conflicts.

type Tokens interface {
	ConfirmByTxHash(tx *gorm.DB, txHash string, at time.Time) (int64, error)
}

type KYCLogs interface {
	CompleteByWallet(tx *gorm.DB, walletAddress string, riskScore decimal.Decimal, verified bool, at time.Time) (int64, error)
}

type TransactionLogs interface {
	CreateIfAbsent(tx *gorm.DB, log *domain.TransactionLog) (int64, error)
}

type WalletLogs interface {
	CreateIfAbsent(tx *gorm.DB, log *domain.WalletLog) (int64, error)
}

type Repositories struct {
	WebhookLogs     WebhookLogs
	RetryJobs       RetryJobs
	Tokens          Tokens
	KYCLogs         KYCLogs
	TransactionLogs TransactionLogs
	WalletLogs      WalletLogs
}

func New() *Repositories {
	return &Repositories{
		WebhookLogs:     InitWebhookLogsRepo(),
		RetryJobs:       InitRetryJobsRepo(),
		Tokens:          InitTokensRepo(),
		KYCLogs:         InitKYCLogsRepo(),
		TransactionLogs: InitTransactionLogsRepo(),
		WalletLogs:      InitWalletLogsRepo(),
	}
}
