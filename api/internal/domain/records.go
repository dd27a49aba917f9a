package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rows below belong to the tokenization, compliance and wallet areas. The
// webhook pipeline only touches them through natural keys.

const (
	TOKEN_PENDING   = "pending"
	TOKEN_CONFIRMED = "confirmed"
	TOKEN_FAILED    = "failed"
)

type Token struct {
	ID          uint       `gorm:"primaryKey"`
	TenantID    string     `gorm:"size:36;index"`
	AssetType   string     `gorm:"size:64"`
	TxHash      string     `gorm:"size:191;index"`
	Status      string     `gorm:"size:16;not null;default:'pending'"`
	ConfirmedAt *time.Time
	CreatedAt   time.Time
}

func (Token) TableName() string {
	return "tokens"
}

type KYCLog struct {
	ID            uint            `gorm:"primaryKey"`
	WalletAddress string          `gorm:"size:191;not null;index"`
	RiskScore     decimal.Decimal `gorm:"type:numeric;default:0"`
	Status        string          `gorm:"size:16"` // low_risk / medium_risk / high_risk
	Verified      bool            `gorm:"not null;default:false"`
	VerifiedAt    *time.Time
	CreatedAt     time.Time
}

func (KYCLog) TableName() string {
	return "kyc_logs"
}

const TX_CONFIRMED = "confirmed"

type TransactionLog struct {
	ID              uint    `gorm:"primaryKey"`
	TransactionHash string  `gorm:"size:191;not null;uniqueIndex"`
	Status          string  `gorm:"size:16;not null"`
	BlockNumber     *uint64 // nil when the event did not carry it
	GasUsed         *uint64
	ConfirmedAt     time.Time
}

func (TransactionLog) TableName() string {
	return "transaction_logs"
}

const DEFAULT_WALLET_TYPE = "standard"

type WalletLog struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        string `gorm:"size:64;not null;index"`
	WalletAddress string `gorm:"size:191;not null;uniqueIndex"`
	WalletType    string `gorm:"size:32;not null"`
	CreatedAt     time.Time
}

func (WalletLog) TableName() string {
	return "wallet_logs"
}

// AllModels is the AutoMigrate set.
func AllModels() []any {
	return []any{&WebhookLog{}, &WebhookRetryJob{}, &Token{}, &KYCLog{}, &TransactionLog{}, &WalletLog{}}
}
