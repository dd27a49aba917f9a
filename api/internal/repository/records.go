package repository

import (
	"mashub/api/internal/domain"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokensRepo struct {
}

func InitTokensRepo() *TokensRepo {
	return &TokensRepo{}
}

func (r *TokensRepo) ConfirmByTxHash(tx *gorm.DB, txHash string, at time.Time) (int64, error) {
	res := tx.Model(&domain.Token{}).Where("tx_hash = ?", txHash).Updates(map[string]any{
		"status":       domain.TOKEN_CONFIRMED,
		"confirmed_at": at,
	})
	return res.RowsAffected, res.Error
}

type KYCLogsRepo struct {
}

func InitKYCLogsRepo() *KYCLogsRepo {
	return &KYCLogsRepo{}
}

func (r *KYCLogsRepo) CompleteByWallet(tx *gorm.DB, walletAddress string, riskScore decimal.Decimal, verified bool, at time.Time) (int64, error) {
	res := tx.Model(&domain.KYCLog{}).Where("wallet_address = ?", walletAddress).Updates(map[string]any{
		"verified":    verified,
		"risk_score":  riskScore,
		"verified_at": at,
	})
	return res.RowsAffected, res.Error
}

type TransactionLogsRepo struct {
}

func InitTransactionLogsRepo() *TransactionLogsRepo {
	return &TransactionLogsRepo{}
}

func (r *TransactionLogsRepo) CreateIfAbsent(tx *gorm.DB, log *domain.TransactionLog) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}).Create(log)
	return res.RowsAffected, res.Error
}

type WalletLogsRepo struct {
}

func InitWalletLogsRepo() *WalletLogsRepo {
	return &WalletLogsRepo{}
}

func (r *WalletLogsRepo) CreateIfAbsent(tx *gorm.DB, log *domain.WalletLog) (int64, error) {
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(log)
	return res.RowsAffected, res.Error
}
