package auth

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const discoveryPath = "/.well-known/openid-configuration"

// keyCache caches the signing key set of each issuer for a bounded TTL
// so token validation does not hit the issuer twice per request. A TTL
// of zero disables caching and fetches on every lookup.
type keyCache struct {
	client *http.Client
	ttl    time.Duration

	mu   sync.RWMutex
	sets map[string]*cachedKeySet
}

type cachedKeySet struct {
	set       jwk.Set
	fetchedAt time.Time
}

func newKeyCache(client *http.Client, ttl time.Duration) *keyCache {
	return &keyCache{
		client: client,
		ttl:    ttl,
		sets:   make(map[string]*cachedKeySet),
	}
}

// KeyFor resolves the verification key for (issuer, kid), fetching the
// issuer's discovery document and key set when the cache is cold or
// stale. A kid miss on a cached set forces one refetch before failing,
// so key rotation is picked up without waiting out the TTL.
func (kc *keyCache) KeyFor(ctx context.Context, issuer, kid string) (any, apperrors.Error) {
	if set := kc.cached(issuer); set != nil {
		if key, ok := set.LookupKeyID(kid); ok {
			return rawKey(key)
		}
	}

	set, err := kc.fetch(ctx, issuer)
	if err != nil {
		return nil, err
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return rawKey(key)
}

func (kc *keyCache) cached(issuer string) jwk.Set {
	if kc.ttl <= 0 {
		return nil
	}
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	entry, ok := kc.sets[issuer]
	if !ok || time.Since(entry.fetchedAt) > kc.ttl {
		return nil
	}
	return entry.set
}

func (kc *keyCache) fetch(ctx context.Context, issuer string) (jwk.Set, apperrors.Error) {
	doc, err := kc.get(ctx, issuer+discoveryPath)
	if err != nil {
		return nil, ErrKeyDiscovery.Err(err)
	}
	jwksURI := gjson.GetBytes(doc, "jwks_uri").String()
	if jwksURI == "" {
		return nil, ErrKeyDiscovery.New("discovery document has no jwks_uri")
	}

	body, err := kc.get(ctx, jwksURI)
	if err != nil {
		return nil, ErrKeyDiscovery.Err(err)
	}
	set, perr := jwk.Parse(body)
	if perr != nil {
		log.Ctx(ctx).Debug().Err(perr).Str("issuer", issuer).Msg("unable to parse key set")
		return nil, ErrKeyDiscovery.Err(perr)
	}

	kc.mu.Lock()
	kc.sets[issuer] = &cachedKeySet{set: set, fetchedAt: time.Now()}
	kc.mu.Unlock()
	return set, nil
}

func (kc *keyCache) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	rsp, err := kc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{status: rsp.StatusCode, url: url}
	}
	return io.ReadAll(rsp.Body)
}

// rawKey materializes the verification key (RSA/EC public key) from
// the JWK entry. Fails when the entry lacks required key fields.
func rawKey(key jwk.Key) (any, apperrors.Error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, ErrKeyNotFound.MsgErr("unable to materialize signing key", err)
	}
	return raw, nil
}

type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return "unexpected status " + http.StatusText(e.status) + " from " + e.url
}
