package extraction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func newTestClient(t *testing.T, providers []config.ProviderConfig) *Client {
	t.Helper()
	return NewClient(ClientParam{
		Config:  config.Config{LLM: config.LLMConfig{Providers: providers}},
		Log:     zap.NewNop(),
		Metrics: metrics.NewWith(prometheus.NewRegistry()),
	})
}

func provider(name, baseURL string) config.ProviderConfig {
	return config.ProviderConfig{Name: name, BaseURL: baseURL, APIKey: "key-" + name, Model: "test-model"}
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	var first, second atomic.Int32

	srvFail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srvFail.Close()

	srvOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		second.Add(1)
		_, _ = w.Write([]byte(completionBody(`{"hours": "Lun a Vie 11:00-23:00"}`)))
	}))
	defer srvOK.Close()

	srvNever := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("third provider must not be called")
	}))
	defer srvNever.Close()

	client := newTestClient(t, []config.ProviderConfig{
		provider("a", srvFail.URL),
		provider("b", srvOK.URL),
		provider("c", srvNever.URL),
	})

	raw, err := client.Extract(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hours": "Lun a Vie 11:00-23:00"}`, string(raw))
	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestChainExhaustedSurfacesTypedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, []config.ProviderConfig{
		provider("a", srv.URL),
		provider("b", srv.URL),
	})

	_, err := client.Extract(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestNonRetryableStopsChain(t *testing.T) {
	srvBad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srvBad.Close()

	srvNever := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("second provider must not be called after a non-retryable failure")
	}))
	defer srvNever.Close()

	client := newTestClient(t, []config.ProviderConfig{
		provider("a", srvBad.URL),
		provider("b", srvNever.URL),
	})

	_, err := client.Extract(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestConnectionFailureIsRetryable(t *testing.T) {
	srvOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody(`{"ok": true}`)))
	}))
	defer srvOK.Close()

	client := newTestClient(t, []config.ProviderConfig{
		provider("down", "http://127.0.0.1:1"),
		provider("up", srvOK.URL),
	})

	raw, err := client.Extract(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(raw))
}

func TestCodeFencesAreStripped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("```json\n{\"zones\": []}\n```")))
	}))
	defer srv.Close()

	client := newTestClient(t, []config.ProviderConfig{provider("a", srv.URL)})

	raw, err := client.Extract(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"zones": []}`, string(raw))
}

func TestNoConfiguredProviders(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.Extract(context.Background(), "sys", "user")
	assert.True(t, errors.Is(err, ErrNoProviders))
}
