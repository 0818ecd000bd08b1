package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expansion-evaluator/internal/types"
)

func testConfig() *types.Config {
	config := types.DefaultConfig()
	config.RequestDelay = 0
	config.RequestJitter = 0
	config.RequestsPerSecond = 0
	return config
}

func TestNewHTTPClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewHTTPClient(config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, logger, client.logger)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.insecure)
	assert.NotNil(t, client.limiter)

	client.Close()
}

func TestHTTPClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(), logrus.New())
	defer client.Close()

	body, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "test response", string(body))
}

func TestHTTPClient_Fetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(), logrus.New())
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL, FetchOptions{})

	require.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindStatus, kind)
	assert.False(t, IsBlocked(err))
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPClient_Fetch_Blocked(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "rate limited", status: http.StatusTooManyRequests},
		{name: "cloudflare 503", status: http.StatusServiceUnavailable, body: "<title>Attention Required! | Cloudflare</title>"},
		{name: "challenge page", status: http.StatusOK, body: `<div id="cf-challenge-running"></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewHTTPClient(testConfig(), logrus.New())
			defer client.Close()

			_, err := client.Fetch(context.Background(), server.URL, FetchOptions{})

			assert.True(t, IsBlocked(err), "expected blocked, got %v", err)
		})
	}
}

func TestHTTPClient_Fetch_PlainUnavailableIsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance window"))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(), logrus.New())
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL, FetchOptions{})

	kind, _ := KindOf(err)
	assert.Equal(t, KindStatus, kind)
}

func TestHTTPClient_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(), logrus.New())
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL, FetchOptions{Timeout: 20 * time.Millisecond})

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, kind)
}

func TestHTTPClient_Fetch_TLSFallback(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("self-signed store"))
	}))
	defer server.Close()

	client := NewHTTPClient(testConfig(), logrus.New())
	defer client.Close()

	resp, err := client.Fetch(context.Background(), server.URL, FetchOptions{})

	require.NoError(t, err)
	assert.Equal(t, "self-signed store", resp.Text())
}

func TestHTTPClient_Fetch_Headers(t *testing.T) {
	var gotUA, gotCache string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCache = r.Header.Get("Cache-Control")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := testConfig()
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	_, err := client.Fetch(context.Background(), server.URL, FetchOptions{})
	require.NoError(t, err)
	assert.Contains(t, config.UserAgents, gotUA)

	mobile := client.WithUserAgent(config.MobileUserAgent).WithHeaders(map[string]string{"Cache-Control": "no-cache"})
	_, err = mobile.Fetch(context.Background(), server.URL, FetchOptions{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(gotUA, "iPhone"))
	assert.Equal(t, "no-cache", gotCache)
}

func TestHTTPClient_Get_ContextCancelled(t *testing.T) {
	config := types.DefaultConfig()
	config.RequestDelay = 100 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "http://example.com")

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestHTTPClient_Close(t *testing.T) {
	client := NewHTTPClient(types.DefaultConfig(), logrus.New())

	// Should not panic
	client.Close()
}
