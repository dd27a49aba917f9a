package domain

import "time"

const (
	ErrMsgMaxRetriesExceeded  = "Max retries exceeded"
	ErrMsgInvalidRetryPayload = "Invalid retry payload"
	ErrMsgRetryAttemptFailed  = "Retry attempt failed"
	ErrMsgProcessingFailed    = "Initial processing failed"
	ErrMsgOperatorReplay      = "Operator replay"
	// prefix, the scheduler error is appended
	ErrMsgRetryScheduling = "Retry scheduling failed: "
)

type WebhookState string

const (
	WEBHOOK_PENDING   WebhookState = "pending"
	WEBHOOK_PROCESSED WebhookState = "processed"
	WEBHOOK_FAILED    WebhookState = "failed"
)

func StrToWebhookState(s string) (WebhookState, bool) {
	switch WebhookState(s) {
	case WEBHOOK_PENDING, WEBHOOK_PROCESSED, WEBHOOK_FAILED:
		return WebhookState(s), true
	}
	return "", false
}

// WebhookLog is the audit row written for every delivery that passed
// verification and parsing.
//
// processed=true implies processed_at is set and error_message is NULL.
// processed=false with error_message NULL means a retry is still pending,
// with error_message set it is a terminal failure.
type WebhookLog struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	EventType         string     `gorm:"size:100;not null;index" json:"event_type"`
	TransactionHash   *string    `gorm:"size:191;index" json:"transaction_hash"`
	Payload           string     `gorm:"type:text;not null" json:"payload"` // json of envelope data
	Processed         bool       `gorm:"not null;default:false;index" json:"processed"`
	SignatureVerified bool       `gorm:"not null;default:false" json:"signature_verified"`
	ErrorMessage      *string    `gorm:"type:text" json:"error_message"`
	UserAgent         string     `gorm:"type:text" json:"user_agent"`
	CreatedAt         time.Time  `gorm:"not null;index" json:"created_at"`
	ProcessedAt       *time.Time `json:"processed_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}

func (l *WebhookLog) State() WebhookState {
	switch {
	case l.Processed:
		return WEBHOOK_PROCESSED
	case l.ErrorMessage != nil:
		return WEBHOOK_FAILED
	default:
		return WEBHOOK_PENDING
	}
}

func (l *WebhookLog) IsTerminal() bool {
	return l.State() == WEBHOOK_FAILED
}

// WebhookRetryJob is one scheduled reattempt of a webhook log.
type WebhookRetryJob struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	WebhookLogID string    `gorm:"size:36;not null;index" json:"webhook_log_id"`
	RetryCount   int       `gorm:"not null;default:0" json:"retry_count"`
	NextRetryAt  time.Time `gorm:"not null;index" json:"next_retry_at"`
	Payload      string    `gorm:"type:text;not null" json:"payload"` // json of the full envelope
	ErrorMessage *string   `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func (WebhookRetryJob) TableName() string {
	return "webhook_retry_jobs"
}

// ProcessedEvent is published once a webhook log reaches processed=true.
type ProcessedEvent struct {
	WebhookID       string    `json:"webhook_id"`
	EventType       string    `json:"event_type"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Attempt         int       `json:"attempt"` // 0 - initial delivery, n - retry job n-1
	ProcessedAt     time.Time `json:"processed_at"`
}

// DeadLetter is what gets archived when a webhook exhausts its retries.
type DeadLetter struct {
	Log        WebhookLog      `json:"log"`
	LastJob    WebhookRetryJob `json:"last_job"`
	ArchivedAt time.Time       `json:"archived_at"`
}

type RetryStats struct {
	Pending      int64 `json:"pending"`
	Failed       int64 `json:"failed"`
	Processed    int64 `json:"processed"`
	TotalRetries int64 `json:"total_retries"`
}
