package repository

import (
	"mashub/api/internal/domain"
	"time"

	"gorm.io/gorm"
)

type RetryJobsRepo struct {
}

func InitRetryJobsRepo() *RetryJobsRepo {
	return &RetryJobsRepo{}
}

func (r *RetryJobsRepo) Create(tx *gorm.DB, job *domain.WebhookRetryJob) error {
	return tx.Create(job).Error
}

// Due returns jobs with next_retry_at <= now, oldest created first.
func (r *RetryJobsRepo) Due(tx *gorm.DB, now time.Time, limit int) ([]domain.WebhookRetryJob, error) {
	var jobs []domain.WebhookRetryJob
	err := tx.Where("next_retry_at <= ?", now).
		Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *RetryJobsRepo) Delete(tx *gorm.DB, id string) (int64, error) {
	res := tx.Where("id = ?", id).Delete(&domain.WebhookRetryJob{})
	return res.RowsAffected, res.Error
}

func (r *RetryJobsRepo) FindByLog(tx *gorm.DB, logID string) ([]domain.WebhookRetryJob, error) {
	var jobs []domain.WebhookRetryJob
	err := tx.Where("webhook_log_id = ?", logID).Order("created_at ASC").Find(&jobs).Error
	return jobs, err
}

func (r *RetryJobsRepo) Count(tx *gorm.DB) (int64, error) {
	var n int64
	err := tx.Model(&domain.WebhookRetryJob{}).Count(&n).Error
	return n, err
}

func (r *RetryJobsRepo) SumRetryCount(tx *gorm.DB) (int64, error) {
	var sum int64
	err := tx.Model(&domain.WebhookRetryJob{}).Select("COALESCE(SUM(retry_count), 0)").Scan(&sum).Error
	return sum, err
}
