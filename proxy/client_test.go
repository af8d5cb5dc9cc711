package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/guard/ratelimit"
	"github.com/diu-mct/access-guard/guard/threat"
	"github.com/diu-mct/access-guard/models"
)

func newTestClient(t *testing.T, upstream string, maxRequests int) *Client {
	t.Helper()
	logger := zap.NewNop()
	limiter := ratelimit.NewLimiter(ratelimit.Config{MaxRequests: maxRequests, Window: time.Minute}, nil, logger)
	detector := threat.NewDetector(threat.Config{}, nil, nil, logger)
	return NewClient(map[string]string{"chat": upstream}, limiter, detector, logger)
}

func TestClient_Forward(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"hello"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 10)

	resp, err := client.Forward(context.Background(), "chat", "uid-1",
		models.Subject{UserID: "uid-1"}, strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"prompt":"hi"}`, received)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"reply":"hello"}`, string(body))
}

func TestClient_ForwardUnknownService(t *testing.T) {
	client := newTestClient(t, "http://unused", 10)

	_, err := client.Forward(context.Background(), "images", "uid-1", models.Subject{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown upstream service")
}

func TestClient_ForwardRateLimited(t *testing.T) {
	var upstreamCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	ctx := context.Background()
	subject := models.Subject{UserID: "uid-1"}

	for i := 0; i < 2; i++ {
		resp, err := client.Forward(ctx, "chat", "uid-1", subject, strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
	}

	// The denied call never reaches the upstream
	_, err := client.Forward(ctx, "chat", "uid-1", subject, strings.NewReader("{}"))
	assert.ErrorIs(t, err, guard.ErrRateLimitExceeded)
	assert.Equal(t, 2, upstreamCalls)
}

func TestClient_HasUpstream(t *testing.T) {
	client := newTestClient(t, "http://unused", 10)
	assert.True(t, client.HasUpstream("chat"))
	assert.False(t, client.HasUpstream("images"))
}
