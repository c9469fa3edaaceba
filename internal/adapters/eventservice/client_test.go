package eventservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, timeout time.Duration) *httpExistenceClient {
	t.Helper()
	checker, err := NewHTTPExistenceClient(nil, Config{
		BaseURL:         baseURL,
		Timeout:         timeout,
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return checker.(*httpExistenceClient)
}

func TestNewHTTPExistenceClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no scheme", "events.local/api/events"},
		{"unsupported scheme", "ftp://events.local/api/events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPExistenceClient(nil, Config{BaseURL: tt.baseURL}, nil)
			require.Error(t, err)
		})
	}
}

func TestNewHTTPExistenceClient_Defaults(t *testing.T) {
	c := newTestClient(t, "http://events.local/api/events/", 0)
	assert.Equal(t, "http://events.local/api/events", c.cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, uint(3), c.cfg.MaxAttempts)
}

func TestHTTPExistenceClient_Exists(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		want         bool
		wantErr      bool
		wantAttempts int32
	}{
		{"event exists", http.StatusOK, "true", true, false, 1},
		{"event absent", http.StatusOK, "false", false, false, 1},
		{"whitespace around body", http.StatusOK, " true\n", true, false, 1},
		{"null body is malformed", http.StatusOK, "null", false, true, 1},
		{"non boolean body is malformed", http.StatusOK, `{"exists":true}`, false, true, 1},
		{"empty body is malformed", http.StatusOK, "", false, true, 1},
		{"404 is not a negative answer", http.StatusNotFound, "", false, true, 1},
		{"400 is not retried", http.StatusBadRequest, "", false, true, 1},
		{"5xx retried until attempts exhausted", http.StatusServiceUnavailable, "", false, true, 3},
		{"429 retried until attempts exhausted", http.StatusTooManyRequests, "", false, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/events/42/exists", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL+"/api/events", time.Second)
			got, err := c.Exists(context.Background(), 42)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantAttempts, attempts.Load())
		})
	}
}

func TestHTTPExistenceClient_RecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("true"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, time.Second)
	got, err := c.Exists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestHTTPExistenceClient_TimeoutIsAnError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, 20*time.Millisecond)
	got, err := c.Exists(context.Background(), 7)
	require.Error(t, err)
	assert.False(t, got)
}

func TestHTTPExistenceClient_TransportFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, 100*time.Millisecond)
	got, err := c.Exists(context.Background(), 7)
	require.Error(t, err)
	assert.False(t, got)
}

func TestHTTPExistenceClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("true"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL, time.Second)
	_, err := c.Exists(ctx, 1)
	require.Error(t, err)
}
