package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MASHUB_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("MASHUB_DB_DSN", "file::memory:")
	t.Setenv("MASHUB_DB_DRIVER", "sqlite")
}

func TestReadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	c, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Api.Addr)
	assert.Equal(t, "X-Maschain-Signature", c.Webhook.SignatureHeader)
	assert.Equal(t, "X-Maschain-Timestamp", c.Webhook.TimestampHeader)
	assert.Equal(t, 5*time.Minute, c.Webhook.Tolerance)
	assert.True(t, c.Webhook.RequireTimestamp)

	assert.Equal(t, 5, c.Retry.MaxRetries)
	assert.Equal(t, time.Second, c.Retry.BaseDelay)
	assert.Equal(t, 2.0, c.Retry.Multiplier)
	assert.Equal(t, 5*time.Minute, c.Retry.MaxDelay)
	assert.Equal(t, time.Minute, c.Retry.Interval)
	assert.Equal(t, 10, c.Retry.BatchSize)
	assert.Equal(t, "memory", c.Locker.Backend)
	assert.Greater(t, c.Retry.Lease, time.Duration(c.Retry.BatchSize)*c.Retry.JobTimeout)
}

func TestReadConfigFailsClosedWithoutSecret(t *testing.T) {
	t.Setenv("MASHUB_DB_DSN", "file::memory:")
	t.Setenv("MASHUB_DB_DRIVER", "sqlite")
	os.Unsetenv("MASHUB_WEBHOOK_SECRET")

	_, err := ReadConfig()
	require.Error(t, err)

	t.Setenv("MASHUB_WEBHOOK_SECRET", "   ")
	_, err = ReadConfig()
	require.Error(t, err)
}

func TestReadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "MASHUB_DB_DRIVER", "oracle"},
		{"zero retries", "MASHUB_RETRY_MAX_RETRIES", "0"},
		{"max delay below base", "MASHUB_RETRY_MAX_DELAY", "500ms"},
		{"multiplier below one", "MASHUB_RETRY_MULTIPLIER", "0.5"},
		{"unknown locker", "MASHUB_LOCKER_BACKEND", "etcd"},
		{"redis locker without addr", "MASHUB_LOCKER_BACKEND", "redis"},
		{"postgres locker on sqlite", "MASHUB_LOCKER_BACKEND", "postgres"},
		{"lease shorter than a batch", "MASHUB_RETRY_LEASE", "5m"},
	}

	for _, x := range tests {
		t.Run(x.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(x.key, x.value)

			_, err := ReadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MASHUB_WEBHOOK_SECRET=from_file\nMASHUB_DB_DRIVER=sqlite\nMASHUB_DB_DSN=file::memory:\nMASHUB_RETRY_BATCH_SIZE=25\nMASHUB_RETRY_LEASE=15m\n"), 0o600))

	// godotenv does not override variables that are already set
	os.Unsetenv("MASHUB_WEBHOOK_SECRET")
	os.Unsetenv("MASHUB_RETRY_BATCH_SIZE")
	os.Unsetenv("MASHUB_RETRY_LEASE")
	t.Cleanup(func() {
		os.Unsetenv("MASHUB_WEBHOOK_SECRET")
		os.Unsetenv("MASHUB_DB_DRIVER")
		os.Unsetenv("MASHUB_DB_DSN")
		os.Unsetenv("MASHUB_RETRY_BATCH_SIZE")
		os.Unsetenv("MASHUB_RETRY_LEASE")
	})
	t.Setenv("ENVPATH", path)

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from_file", c.Webhook.Secret)
	assert.Equal(t, 25, c.Retry.BatchSize)
	assert.Equal(t, 15*time.Minute, c.Retry.Lease)
}

func TestValidateLeaseCoversBatch(t *testing.T) {
	setBaseEnv(t)

	c, err := ReadConfig()
	require.NoError(t, err)

	c.Retry.BatchSize = 20
	c.Retry.JobTimeout = 30 * time.Second
	c.Retry.Lease = 10 * time.Minute
	require.Error(t, c.Validate())

	c.Retry.Lease = 10*time.Minute + time.Second
	require.NoError(t, c.Validate())
}
