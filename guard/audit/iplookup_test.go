package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIPLookupClient_LookupAndCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ip":"203.0.113.55"}`))
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewIPLookupClient(IPLookupConfig{
		Endpoint: server.URL,
		CacheTTL: time.Minute,
	}, logger)

	ctx := context.Background()
	assert.Equal(t, "203.0.113.55", client.Lookup(ctx))
	assert.Equal(t, "203.0.113.55", client.Lookup(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIPLookupClient_FailureReturnsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewIPLookupClient(IPLookupConfig{Endpoint: server.URL}, logger)

	assert.Equal(t, UnknownIP, client.Lookup(context.Background()))
}
