package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureProcessor struct {
	mu     sync.Mutex
	bodies [][]byte
	done   chan struct{}
}

func newCaptureProcessor() *captureProcessor {
	return &captureProcessor{done: make(chan struct{}, 8)}
}

func (p *captureProcessor) Process(_ context.Context, raw []byte) {
	p.mu.Lock()
	p.bodies = append(p.bodies, raw)
	p.mu.Unlock()
	p.done <- struct{}{}
}

func (p *captureProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bodies)
}

func newTestRouter(cfg config.Config) (*gin.Engine, *captureProcessor, *metrics.Metrics) {
	gin.SetMode(gin.TestMode)
	processor := newCaptureProcessor()
	m := metrics.NewWith(prometheus.NewRegistry())
	wh := NewWebhook(WebhookParam{
		Config:    cfg,
		Log:       zap.NewNop(),
		Metrics:   m,
		Processor: processor,
	})

	r := gin.New()
	r.GET("/webhook/whatsapp", wh.Verify)
	r.POST("/webhook/whatsapp", wh.Receive)
	return r, processor, m
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHandshake(t *testing.T) {
	r, _, _ := newTestRouter(config.Config{
		Channel: config.ChannelConfig{VerifyToken: "sekrit"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=sekrit&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestVerifyHandshakeRejectsWrongToken(t *testing.T) {
	r, _, _ := newTestRouter(config.Config{
		Channel: config.ChannelConfig{VerifyToken: "sekrit"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReceiveValidSignatureAcksAndProcesses(t *testing.T) {
	cfg := config.Config{Channel: config.ChannelConfig{AppSecret: "app-secret"}}
	r, processor, _ := newTestRouter(cfg)

	body := []byte(`{"entry": []}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("app-secret", body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-processor.done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}
	require.Equal(t, 1, processor.count())
}

func TestReceiveBadSignatureIsDropped(t *testing.T) {
	cfg := config.Config{Channel: config.ChannelConfig{AppSecret: "app-secret"}}
	r, processor, m := newTestRouter(cfg)

	body := []byte(`{"entry": []}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign("other-secret", body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, processor.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.InboundEvents.WithLabelValues(metrics.OutcomeDroppedSig)))
}

func TestReceiveMissingSignatureHeaderIsDropped(t *testing.T) {
	cfg := config.Config{Channel: config.ChannelConfig{AppSecret: "app-secret"}}
	r, processor, m := newTestRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader([]byte(`{}`)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, processor.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.InboundEvents.WithLabelValues(metrics.OutcomeDroppedSig)))
}

func TestReceiveDevModeBypassesSignature(t *testing.T) {
	r, processor, _ := newTestRouter(config.Config{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader([]byte(`{"entry": []}`)))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-processor.done:
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}
}
