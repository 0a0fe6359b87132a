package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/heatline/internal/profiler"
	"github.com/coral-mesh/heatline/internal/server"
	"github.com/coral-mesh/heatline/internal/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	session, err := profiler.NewSession(testutil.NewFakeEngine(), profiler.SessionConfig{}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	ts := httptest.NewServer(server.NewDispatcher(session, 0, testutil.NewTestLogger(t)))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)
	ctx := context.Background()

	running, err := c.Info(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, c.Start(ctx))

	running, err = c.Info(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	root, err := c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "(root)", root.Name)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "main.main", root.Children[0].Name)
	assert.Equal(t, int64(4), root.TotalHits())
}

func TestClient_StateConflicts(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.Stop(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "not running", apiErr.Message)

	require.NoError(t, c.Start(ctx))
	err = c.Start(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "already running", apiErr.Message)
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	_, err := New(ts.URL).Info(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "gateway exploded", apiErr.Message)
}

func TestClient_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := New(addr, WithRetry(RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}))
	_, err = c.Info(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
}

func TestNew_BaseURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:11337", New("127.0.0.1:11337").BaseURL())
	assert.Equal(t, "https://profiler.local", New("https://profiler.local/").BaseURL())
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	t.Run("recovers from refused connection", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), cfg, func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := retry(context.Background(), cfg, func() error {
			calls++
			return errors.New("bad request")
		})
		require.EqualError(t, err, "bad request")
		assert.Equal(t, 1, calls)
	})

	t.Run("respects context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := retry(ctx, RetryConfig{MaxAttempts: 3, InitialBackoff: time.Hour}, func() error {
			return syscall.ECONNREFUSED
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, backoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, backoff(cfg, 2))
	assert.Equal(t, 300*time.Millisecond, backoff(cfg, 3))
}
