package v1

import (
	"encoding/json"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/logger"
	"mashub/api/internal/service"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testSecret    = "test-secret"
	testAccessKey = "admin-key"
)

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func testConfig() *config.Config {
	var cfg config.Config
	cfg.Api.MaxBodyBytes = 1024
	cfg.Webhook.Secret = testSecret
	cfg.Webhook.SignatureHeader = "X-Maschain-Signature"
	cfg.Webhook.TimestampHeader = "X-Maschain-Timestamp"
	cfg.Webhook.Tolerance = 5 * time.Minute
	cfg.Webhook.RequireTimestamp = true
	cfg.Webhook.RateLimit = 600
	cfg.Retry.MaxRetries = 5
	cfg.Retry.BaseDelay = time.Second
	cfg.Retry.Multiplier = 2
	cfg.Retry.MaxDelay = 5 * time.Minute
	cfg.Retry.BatchSize = 10
	cfg.Retry.JobTimeout = 2 * time.Second
	cfg.Retry.Lease = time.Minute
	cfg.Admin.AccessKey = testAccessKey
	return &cfg
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := database.InitTest()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	l := logger.Nop()
	services := service.HewServices(db, l, cfg, service.Deps{})

	engine := gin.New()
	NewHandler(services, db, cfg, l).InitRoutes(engine.Group("/v1"))

	return &testServer{engine: engine, db: db, cfg: cfg}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) webhook(body string, sign bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MasChain-Webhook/1.0")
	req.Header.Set("X-Maschain-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	if sign {
		req.Header.Set("X-Maschain-Signature", service.Sign([]byte(body), testSecret))
	}
	return req
}

func (s *testServer) admin(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Access", testAccessKey)
	return req
}

func (s *testServer) logCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&domain.WebhookLog{}).Count(&n).Error)
	return n
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestWebhookProcessed(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Create(&domain.Token{TxHash: "0xabc", Status: domain.TOKEN_PENDING}).Error)

	w := s.do(s.webhook(`{"event_type":"token_minted","transaction_hash":"0xabc"}`, true))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[domain.ResponseWebhook](t, w)
	assert.True(t, res.Success)
	assert.True(t, res.Processed)
	assert.NotEmpty(t, res.WebhookID)

	var tok domain.Token
	require.NoError(t, s.db.First(&tok).Error)
	assert.Equal(t, domain.TOKEN_CONFIRMED, tok.Status)
}

func TestWebhookQueuedForRetry(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.webhook(`{"event_type":"token_minted"}`, true))
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[domain.ResponseWebhook](t, w)
	assert.True(t, res.Success)
	assert.False(t, res.Processed)
}

func TestWebhookUnknownEvent(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.webhook(`{"event_type":"unknown_future_event"}`, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.ResponseWebhook](t, w).Processed)
}

func TestWebhookRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		msg    string
	}{
		{"unparsable", s.webhook(`{not json`, true), http.StatusBadRequest, domain.ErrMsgInvalidPayload},
		{"missing event_type", s.webhook(`{"data":{}}`, true), http.StatusBadRequest, domain.ErrMsgMissingEventType},
		{"data not object", s.webhook(`{"event_type":"token_minted","data":[]}`, true), http.StatusBadRequest, domain.ErrMsgInvalidPayload},
		{"no signature", s.webhook(`{"event_type":"token_minted"}`, false), http.StatusUnauthorized, domain.ErrMsgVerificationFailed},
	}

	bad := s.webhook(`{"event_type":"token_minted"}`, false)
	bad.Header.Set("X-Maschain-Signature", "sha256=deadbeef")
	tests = append(tests, struct {
		name   string
		req    *http.Request
		status int
		msg    string
	}{"bad signature", bad, http.StatusUnauthorized, domain.ErrMsgVerificationFailed})

	stale := s.webhook(`{"event_type":"token_minted"}`, true)
	stale.Header.Set("X-Maschain-Timestamp", strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10))
	tests = append(tests, struct {
		name   string
		req    *http.Request
		status int
		msg    string
	}{"stale timestamp", stale, http.StatusUnauthorized, domain.ErrMsgVerificationFailed})

	for _, tt := range tests {
		w := s.do(tt.req)
		assert.Equal(t, tt.status, w.Code, tt.name)

		res := decode[responseError](t, w)
		assert.True(t, res.Error, tt.name)
		assert.Equal(t, tt.msg, res.Msg, tt.name)
	}

	assert.Zero(t, s.logCount(t))
}

func TestWebhookBodyTooLarge(t *testing.T) {
	s := newTestServer(t)

	body := `{"event_type":"token_minted","data":{"pad":"` + strings.Repeat("x", 2048) + `"}}`
	w := s.do(s.webhook(body, true))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, s.logCount(t))
}

func TestWebhookRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Webhook.RateLimit = 2 })

	for range 2 {
		w := s.do(s.webhook(`{"event_type":"unknown_future_event"}`, true))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(s.webhook(`{"event_type":"unknown_future_event"}`, true))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestWebhookLogFailureIs500(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Migrator().DropTable(&domain.WebhookLog{}))

	w := s.do(s.webhook(`{"event_type":"token_minted"}`, true))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	res := decode[responseError](t, w)
	assert.Equal(t, domain.ErrMsgLogFailed, res.Msg)
	assert.NotEmpty(t, res.ErrorID)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	res := decode[responseHealth](t, w)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "ok", res.Database)
	assert.Equal(t, domain.VERSION, res.Version)
	assert.Equal(t, "development", res.Environment)
	assert.WithinDuration(t, time.Now(), res.Timestamp, time.Minute)

	require.NoError(t, database.Close(s.db))
	w = s.do(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	res = decode[responseHealth](t, w)
	assert.Equal(t, "unhealthy", res.Status)
	assert.Equal(t, "down", res.Database)
	assert.False(t, res.Timestamp.IsZero())
}

func TestHealthReportsProduction(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.ProdEnv = true })

	w := s.do(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "production", decode[responseHealth](t, w).Environment)
}

func TestAdminAccess(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/webhooks/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, s.do(req).Code)

	req.Header.Set("Access", "wrong")
	assert.Equal(t, http.StatusUnauthorized, s.do(req).Code)

	assert.Equal(t, http.StatusOK, s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/stats")).Code)
}

func TestAdminRoutesDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Admin.AccessKey = "" })

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/webhooks/stats", nil)
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)
}

func TestAdminFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.webhook(`{"event_type":"token_minted"}`, true))
	require.Equal(t, http.StatusOK, w.Code)
	id := decode[domain.ResponseWebhook](t, w).WebhookID

	w = s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/stats"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[responseStats](t, w).Stats.Pending)

	w = s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/logs?status=pending&limit=5"))
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[responseLogs](t, w)
	require.Equal(t, 1, logs.Count)
	assert.Equal(t, id, logs.Logs[0].ID)

	w = s.do(s.admin(http.MethodPost, "/v1/admin/webhooks/logs/"+id+"/replay"))
	assert.Equal(t, http.StatusConflict, w.Code, "pending logs are not replayable")

	w = s.do(s.admin(http.MethodPost, "/v1/admin/webhooks/logs/nope/replay"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the job is not due yet
	w = s.do(s.admin(http.MethodPost, "/v1/admin/webhooks/sweep"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[responseSweep](t, w).Report.Due)
}

func TestAdminLogsValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/logs?status=bogus"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrMsgInvalidLogStatus, decode[responseError](t, w).Msg)

	w = s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/logs?limit=100000"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/logs?limit=abc"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(s.admin(http.MethodGet, "/v1/admin/webhooks/logs"))
	assert.Equal(t, http.StatusOK, w.Code)
}

