package service

import (
	"context"
	"fmt"
	"mashub/api/internal/domain"
	"mashub/api/internal/logger"
	"mashub/api/internal/repository"
	"mashub/pkg/clock"
	"time"

	"gorm.io/gorm"
)

// DispatcherService routes typed events to their side effects. Every
// handler reports success as a bool; store errors stay inside.
type DispatcherService struct {
	db    *gorm.DB
	repos *repository.Repositories
	clock clock.Clock
	l     logger.Logger
}

func NewDispatcherService(db *gorm.DB, repos *repository.Repositories, clock clock.Clock, l logger.Logger) *DispatcherService {
	return &DispatcherService{db: db, repos: repos, clock: clock, l: l}
}

// Dispatch never panics. A recovered handler panic counts as a failure.
func (s *DispatcherService) Dispatch(ctx context.Context, env *domain.Envelope) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.l.Error("handler panic", logger.LS_WEBHOOKS, false, "event_type", env.EventType, "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	return env.Event().Dispatch(ctx, s)
}

func (s *DispatcherService) TokenMinted(ctx context.Context, e domain.TokenMinted) bool {
	if e.TxHash == "" {
		return false
	}

	n, err := s.repos.Tokens.ConfirmByTxHash(s.db.WithContext(ctx), e.TxHash, s.clock.Now())
	if err != nil {
		s.l.Error("token confirm failed", logger.LS_WEBHOOKS, false, "tx_hash", e.TxHash, "error", err)
		return false
	}

	s.l.Debug("token minted", "tx_hash", e.TxHash, "rows", n)
	return true
}

func (s *DispatcherService) KYCCompleted(ctx context.Context, e domain.KYCCompleted) bool {
	if e.DecodeErr != nil || e.WalletAddress == "" {
		return false
	}

	n, err := s.repos.KYCLogs.CompleteByWallet(s.db.WithContext(ctx), e.WalletAddress, e.RiskScore, e.Verified, s.clock.Now())
	if err != nil {
		s.l.Error("kyc update failed", logger.LS_WEBHOOKS, false, "wallet_address", e.WalletAddress, "error", err)
		return false
	}

	s.l.Debug("kyc completed", "wallet_address", e.WalletAddress, "verified", e.Verified, "rows", n)
	return true
}

func (s *DispatcherService) TransactionConfirmed(ctx context.Context, e domain.TransactionConfirmed) bool {
	if e.DecodeErr != nil || e.TxHash == "" {
		return false
	}

	log := &domain.TransactionLog{
		TransactionHash: e.TxHash,
		Status:          domain.TX_CONFIRMED,
		BlockNumber:     e.BlockNumber.Uint64Ptr(),
		GasUsed:         e.GasUsed.Uint64Ptr(),
		ConfirmedAt:     s.clock.Now(),
	}

	n, err := s.repos.TransactionLogs.CreateIfAbsent(s.db.WithContext(ctx), log)
	if err != nil {
		s.l.Error("transaction log insert failed", logger.LS_WEBHOOKS, false, "tx_hash", e.TxHash, "error", err)
		return false
	}

	s.l.Debug("transaction confirmed", "tx_hash", e.TxHash, "inserted", n)
	return true
}

func (s *DispatcherService) WalletCreated(ctx context.Context, e domain.WalletCreated) bool {
	if e.DecodeErr != nil || e.WalletAddress == "" || e.UserID == "" {
		return false
	}

	walletType := e.WalletType
	if walletType == "" {
		walletType = domain.DEFAULT_WALLET_TYPE
	}

	log := &domain.WalletLog{
		UserID:        e.UserID.String(),
		WalletAddress: e.WalletAddress,
		WalletType:    walletType,
		CreatedAt:     s.clock.Now(),
	}

	n, err := s.repos.WalletLogs.CreateIfAbsent(s.db.WithContext(ctx), log)
	if err != nil {
		s.l.Error("wallet log insert failed", logger.LS_WEBHOOKS, false, "wallet_address", e.WalletAddress, "error", err)
		return false
	}

	s.l.Debug("wallet created", "wallet_address", e.WalletAddress, "inserted", n)
	return true
}

// Unknown event kinds are acknowledged so MasChain stops redelivering them.
func (s *DispatcherService) Unknown(ctx context.Context, e domain.UnknownEvent) bool {
	s.l.Warn("unknown webhook event type", logger.LS_WEBHOOKS, false, "event_type", e.EventType)
	return true
}

// dispatchWithTimeout bounds one attempt. A handler that outlives the
// deadline is reported as failed; its store calls share ctx and abort.
func dispatchWithTimeout(ctx context.Context, d Dispatcher, env *domain.Envelope, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- d.Dispatch(ctx, env)
	}()

	select {
	case ok := <-done:
		return ok && ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}
