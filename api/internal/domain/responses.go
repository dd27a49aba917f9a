package domain

import (
	"errors"
	"net/http"
)

// VERSION is reported by /health. Set at build time with
// -ldflags "-X mashub/api/internal/domain.VERSION=..."
var VERSION = "dev"

type ResponseWebhook struct {
	Success   bool   `json:"success"`
	Processed bool   `json:"processed"`
	WebhookID string `json:"webhook_id"`
}

const (
	ErrMsgRateLimitExceeded   = "rate limit exceeded"
	ErrMsgInternalServerError = "internal server error"
	ErrMsgBadRequest          = "bad request"
	ErrMsgParamsBadRequest    = "bad request: %s"
	ErrMsgAccessError         = "access denied"
	ErrMsgBodyTooLarge        = "request body too large"

	ErrMsgVerificationFailed = "Webhook verification failed"
	ErrMsgInvalidPayload     = "Invalid payload format"
	ErrMsgMissingEventType   = "Missing event_type"
	ErrMsgLogFailed          = "Failed to log webhook"
	ErrMsgProcessingError    = "Webhook processing failed"

	ErrMsgWebhookNotFound  = "webhook not found"
	ErrMsgNotReplayable    = "webhook is not in a terminal failed state"
	ErrMsgSweepInProgress  = "retry sweep already in progress"
	ErrMsgInvalidLogStatus = "status must be one of pending, processed, failed"
)

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidTimestamp = errors.New("timestamp outside tolerance")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrMissingEventType = errors.New("missing event_type")
	ErrLogPersistence   = errors.New("failed to persist webhook log")

	ErrWebhookNotFound     = errors.New(ErrMsgWebhookNotFound)
	ErrNotReplayable       = errors.New(ErrMsgNotReplayable)
	ErrSweepInProgress     = errors.New(ErrMsgSweepInProgress)
	ErrInternalServerError = errors.New(ErrMsgInternalServerError)
)

func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrInvalidTimestamp)
}

func GetStatusByErr(err error) (status int) {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case IsAuthError(err):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrMissingEventType), errors.Is(err, ErrInvalidPayload):
		status = http.StatusBadRequest
	case errors.Is(err, ErrWebhookNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotReplayable), errors.Is(err, ErrSweepInProgress):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	return status
}

// GetMsgByErr returns the client facing message for err.
func GetMsgByErr(err error) string {
	switch {
	case IsAuthError(err):
		return ErrMsgVerificationFailed
	case errors.Is(err, ErrMissingEventType):
		return ErrMsgMissingEventType
	case errors.Is(err, ErrInvalidPayload):
		return ErrMsgInvalidPayload
	case errors.Is(err, ErrLogPersistence):
		return ErrMsgLogFailed
	case errors.Is(err, ErrWebhookNotFound):
		return ErrMsgWebhookNotFound
	case errors.Is(err, ErrNotReplayable):
		return ErrMsgNotReplayable
	case errors.Is(err, ErrSweepInProgress):
		return ErrMsgSweepInProgress
	default:
		return ErrMsgInternalServerError
	}
}
