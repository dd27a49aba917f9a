package logger

import "time"

func (l Logger) TemplWebhookErr(message, errorId, webhookId, eventType, ip string, err error) string {
	l.Error(message, LS_WEBHOOKS, true, "webhook_id", webhookId, "event_type", eventType, "ip", ip, "error_id", errorId, "error", errStr(err))
	return errorId
}

func (l Logger) TemplWebhookInfo(message, webhookId, eventType string, processed bool) {
	l.Info(message, LS_WEBHOOKS, true, "webhook_id", webhookId, "event_type", eventType, "processed", processed)
}

func (l Logger) TemplRetryErr(message, webhookId string, retryCount int, err error) {
	l.Error(message, LS_RETRIES, true, "webhook_id", webhookId, "retry_count", retryCount, "error", errStr(err))
}

func (l Logger) TemplRetryInfo(message, webhookId string, retryCount int, nextRetryAt time.Time) {
	l.Info(message, LS_RETRIES, true, "webhook_id", webhookId, "retry_count", retryCount, "next_retry_at", nextRetryAt.Format(time.RFC3339))
}

// use only for fatal errors
func (l Logger) TemplHTTPError(message string, addr string, err error) {
	l.Fatal(message, LS_FATAL, true, "error", errStr(err), "addr", addr)
}

func (l Logger) TemplNatsError(message, natsUrl string, err error) {
	l.Error(message, LS_NATS, true, "nats_url", natsUrl, "error", errStr(err))
}

func (l Logger) TemplNatsInfo(message, natsUrl string) {
	l.Info(message, LS_NATS, true, "nats_url", natsUrl, "error", NA)
}

func errStr(err error) string {
	if err == nil {
		return NA
	}
	return err.Error()
}
