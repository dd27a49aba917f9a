package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const SIGNATURE_PREFIX = "sha256="

// VerifySignature checks an HMAC-SHA256 of the raw body. The header may
// carry a "sha256=" prefix. An empty secret never verifies.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}

	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, SIGNATURE_PREFIX)
	if signature == "" {
		return false
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	return hmac.Equal(got, mac(rawBody, secret))
}

// Sign returns the header value MasChain would send for rawBody.
func Sign(rawBody []byte, secret string) string {
	return SIGNATURE_PREFIX + hex.EncodeToString(mac(rawBody, secret))
}

func mac(rawBody []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(rawBody)
	return h.Sum(nil)
}

// VerifyTimestamp accepts RFC3339 (nano) strings or unix seconds and
// rejects anything further than tolerance from now in either direction.
func VerifyTimestamp(timestamp string, tolerance time.Duration, now time.Time) bool {
	t, ok := ParseTimestamp(timestamp)
	if !ok {
		return false
	}

	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func ParseTimestamp(timestamp string) (time.Time, bool) {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp == "" {
		return time.Time{}, false
	}

	if secs, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}

	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
