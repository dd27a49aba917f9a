package repository

import (
	"fmt"
	"mashub/api/internal/domain"
	"time"

	"gorm.io/gorm"
)

type WebhookLogsRepo struct {
}

func InitWebhookLogsRepo() *WebhookLogsRepo {
	return &WebhookLogsRepo{}
}

func (r *WebhookLogsRepo) Create(tx *gorm.DB, log *domain.WebhookLog) error {
	return tx.Create(log).Error
}

func (r *WebhookLogsRepo) Find(tx *gorm.DB, id string) (*domain.WebhookLog, error) {
	var log domain.WebhookLog
	return &log, tx.Where("id = ?", id).First(&log).Error
}

func (r *WebhookLogsRepo) MarkProcessed(tx *gorm.DB, id string, at time.Time) (int64, error) {
	res := tx.Model(&domain.WebhookLog{}).Where("id = ?", id).Updates(map[string]any{
		"processed":     true,
		"processed_at":  at,
		"error_message": nil,
	})
	return res.RowsAffected, res.Error
}

// MarkFailed records a terminal failure. processed stays false.
func (r *WebhookLogsRepo) MarkFailed(tx *gorm.DB, id string, errMsg string) error {
	return tx.Model(&domain.WebhookLog{}).Where("id = ?", id).Updates(map[string]any{
		"processed":     false,
		"error_message": errMsg,
	}).Error
}

func (r *WebhookLogsRepo) ClearError(tx *gorm.DB, id string) (int64, error) {
	res := tx.Model(&domain.WebhookLog{}).
		Where("id = ? AND processed = ? AND error_message IS NOT NULL", id, false).
		Update("error_message", nil)
	return res.RowsAffected, res.Error
}

func stateScope(state domain.WebhookState) (func(*gorm.DB) *gorm.DB, error) {
	switch state {
	case "":
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	case domain.WEBHOOK_PROCESSED:
		return func(db *gorm.DB) *gorm.DB { return db.Where("processed = ?", true) }, nil
	case domain.WEBHOOK_FAILED:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("processed = ? AND error_message IS NOT NULL", false)
		}, nil
	case domain.WEBHOOK_PENDING:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("processed = ? AND error_message IS NULL", false)
		}, nil
	default:
		return nil, fmt.Errorf("unknown webhook state: %s", state)
	}
}

// List returns the newest logs first. An empty state means all logs.
func (r *WebhookLogsRepo) List(tx *gorm.DB, state domain.WebhookState, limit int) ([]domain.WebhookLog, error) {
	scope, err := stateScope(state)
	if err != nil {
		return nil, err
	}

	var logs []domain.WebhookLog
	err = tx.Scopes(scope).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (r *WebhookLogsRepo) CountByState(tx *gorm.DB, state domain.WebhookState) (int64, error) {
	scope, err := stateScope(state)
	if err != nil {
		return 0, err
	}

	var n int64
	err = tx.Model(&domain.WebhookLog{}).Scopes(scope).Count(&n).Error
	return n, err
}
