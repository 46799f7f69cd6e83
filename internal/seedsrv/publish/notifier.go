package publish

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerd4ever/kaya-seed/internal/seedsrv/catalog"
	"github.com/rs/zerolog/log"
)

const (
	endpointPathPrefix = "/rest/V1/nerd4ever/kaya/endpoint/"
	orderPathPrefix    = "/rest/V1/nerd4ever/kaya/order/"
)

// TokenSource supplies the bearer token for outbound marketplace calls.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// Notifier pushes endpoint registration and order state changes to the
// marketplace. Notifications are best-effort: every failure mode maps
// to a false result and the caller decides whether to care. The
// marketplace acknowledges with 202 Accepted; anything else is a
// failure.
type Notifier struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

func NewNotifier(baseURL string, tokens TokenSource, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

// Install registers this endpoint with the marketplace under the given
// name.
func (n *Notifier) Install(ctx context.Context, name string) bool {
	if name == "" {
		return false
	}
	return n.put(ctx, n.baseURL+endpointPathPrefix+url.PathEscape(name))
}

// NotifyState reports an order's lifecycle state to the marketplace.
// The state is checked against the known set before any network call.
func (n *Notifier) NotifyState(ctx context.Context, orderID string, state catalog.State) bool {
	if orderID == "" || !state.IsValid() {
		log.Ctx(ctx).Debug().Str("order", orderID).Str("state", string(state)).
			Msg("refusing to publish an unknown order state")
		return false
	}
	return n.put(ctx, n.baseURL+orderPathPrefix+url.PathEscape(orderID)+"/"+url.PathEscape(string(state)))
}

func (n *Notifier) put(ctx context.Context, target string) bool {
	logger := log.Ctx(ctx)

	// No cached token means no marketplace session; skip the wire.
	token := n.tokens.AccessToken(ctx)
	if token == "" {
		logger.Debug().Str("url", target).Msg("no access token available for marketplace publish")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rsp, err := n.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Str("url", target).Msg("marketplace publish failed")
		return false
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusAccepted {
		logger.Debug().Int("status", rsp.StatusCode).Str("url", target).
			Msg("marketplace publish not accepted")
		return false
	}
	return true
}
