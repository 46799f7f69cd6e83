package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/stretchr/testify/assert"
)

type staticTokenSource string

func (s staticTokenSource) AccessToken(ctx context.Context) string {
	return string(s)
}

type capturedRequest struct {
	method string
	path   string
	auth   string
}

func newMarketplace(t *testing.T, status int) (*httptest.Server, *capturedRequest, *atomic.Int32) {
	t.Helper()
	captured := &capturedRequest{}
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, captured, hits
}

func TestInstall(t *testing.T) {
	srv, captured, _ := newMarketplace(t, http.StatusAccepted)
	n := NewNotifier(srv.URL, staticTokenSource("token-abc"), 5*time.Second)

	assert.True(t, n.Install(context.Background(), "kaya-seed"))
	assert.Equal(t, http.MethodPut, captured.method)
	assert.Equal(t, "/rest/V1/nerd4ever/kaya/endpoint/kaya-seed", captured.path)
	assert.Equal(t, "Bearer token-abc", captured.auth)

	assert.False(t, n.Install(context.Background(), ""))
}

func TestNotifyState(t *testing.T) {
	srv, captured, _ := newMarketplace(t, http.StatusAccepted)
	n := NewNotifier(srv.URL, staticTokenSource("token-abc"), 5*time.Second)

	assert.True(t, n.NotifyState(context.Background(), "order-1", catalog.StateStarting))
	assert.Equal(t, "/rest/V1/nerd4ever/kaya/order/order-1/starting", captured.path)
	assert.Equal(t, "Bearer token-abc", captured.auth)
}

func TestNotifyStateRejectsUnknownState(t *testing.T) {
	srv, _, hits := newMarketplace(t, http.StatusAccepted)
	n := NewNotifier(srv.URL, staticTokenSource("token-abc"), 5*time.Second)

	assert.False(t, n.NotifyState(context.Background(), "order-1", catalog.State("melting")))
	assert.False(t, n.NotifyState(context.Background(), "", catalog.StateStarting))
	assert.Equal(t, int32(0), hits.Load(), "invalid input must not reach the wire")
}

func TestPublishWithoutToken(t *testing.T) {
	srv, _, hits := newMarketplace(t, http.StatusAccepted)
	n := NewNotifier(srv.URL, staticTokenSource(""), 5*time.Second)

	assert.False(t, n.Install(context.Background(), "kaya-seed"))
	assert.False(t, n.NotifyState(context.Background(), "order-1", catalog.StateStarting))
	assert.Equal(t, int32(0), hits.Load(), "missing token must short-circuit before the network")
}

func TestPublishNonAcceptedStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusUnauthorized, http.StatusInternalServerError} {
		srv, _, _ := newMarketplace(t, status)
		n := NewNotifier(srv.URL, staticTokenSource("token-abc"), 5*time.Second)
		assert.False(t, n.Install(context.Background(), "kaya-seed"), "status %d is not success", status)
	}
}

func TestPublishTransportFailure(t *testing.T) {
	srv, _, _ := newMarketplace(t, http.StatusAccepted)
	srv.Close()
	n := NewNotifier(srv.URL, staticTokenSource("token-abc"), time.Second)

	assert.False(t, n.Install(context.Background(), "kaya-seed"))
	assert.False(t, n.NotifyState(context.Background(), "order-1", catalog.StateStopping))
}
