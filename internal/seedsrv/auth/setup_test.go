package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

// fakeIDP is an in-process identity provider serving OIDC discovery,
// a JWKS endpoint and the OAuth2 token/revoke endpoints.
type fakeIDP struct {
	t   *testing.T
	key *rsa.PrivateKey
	kid string
	srv *httptest.Server

	discoveryHits atomic.Int32
	tokenHits     atomic.Int32

	goodPassword     string
	goodRefreshToken string
	mintBroken       bool
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIDP{
		t:                t,
		key:              key,
		kid:              "test-key-1",
		goodPassword:     "good-password",
		goodRefreshToken: "refresh-token-1",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		f.discoveryHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"issuer":%q,"jwks_uri":%q}`, f.srv.URL, f.srv.URL+"/keys")
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		pub, err := jwk.FromRaw(key.Public())
		require.NoError(t, err)
		require.NoError(t, pub.Set(jwk.KeyIDKey, f.kid))
		require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))
		set := jwk.NewSet()
		require.NoError(t, set.AddKey(pub))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(set))
	})
	mux.HandleFunc("/platform/v1/oauth2/token", f.handleToken)
	mux.HandleFunc("/platform/v1/oauth2", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIDP) handleToken(w http.ResponseWriter, r *http.Request) {
	f.tokenHits.Add(1)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	require.NoError(f.t, r.ParseForm())

	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("password") != f.goodPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != f.goodRefreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The jti keeps successive tokens distinct even within one second.
	claims := jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": fmt.Sprintf("grant-%d", f.tokenHits.Load()),
	}
	idToken := f.mint(claims)
	if f.mintBroken {
		// A structurally complete token signed by an unknown key.
		idToken = f.mintWithKid("rogue-key", claims)
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id_token":%q,"refresh_token":%q,"token_type":"Bearer"}`, idToken, f.goodRefreshToken)
}

// mint signs a token with the IDP's active key. The issuer claim
// defaults to the IDP's own URL so discovery resolves to the test
// server.
func (f *fakeIDP) mint(claims jwt.MapClaims) string {
	return f.mintWithKid(f.kid, claims)
}

func (f *fakeIDP) mintWithKid(kid string, claims jwt.MapClaims) string {
	f.t.Helper()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = f.srv.URL
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIDP) verifier(ttl time.Duration) *Verifier {
	return NewVerifier(5*time.Second, ttl)
}

func (f *fakeIDP) tokenClient(ttl time.Duration) *TokenClient {
	return NewTokenClient(f.srv.URL, f.verifier(ttl), 5*time.Second)
}
