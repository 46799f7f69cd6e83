package auth

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	tokenPath  = "/platform/v1/oauth2/token"
	revokePath = "/platform/v1/oauth2"
)

// Credential is the cached result of an OAuth2 exchange.
type Credential struct {
	AccessToken    string
	RefreshToken   string
	ExpirationTime int64
}

// TokenClient performs the OAuth2 exchanges with the identity platform
// and owns the single cached credential. All credential access is
// serialized by one mutex, so concurrent expiry discoveries trigger at
// most one refresh. Transport failures never escape as faults; callers
// see nil, an empty token or false and are expected to re-authorize.
type TokenClient struct {
	baseURL  string
	verifier *Verifier
	client   *http.Client

	mu   sync.Mutex
	cred Credential
}

func NewTokenClient(baseURL string, verifier *Verifier, timeout time.Duration) *TokenClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TokenClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		verifier: verifier,
		client:   &http.Client{Timeout: timeout},
	}
}

// Authorize performs a password grant and caches the credential. The
// returned identity token is validated through the Verifier before
// anything is cached; a token endpoint response that does not verify
// fails the whole call.
func (tc *TokenClient) Authorize(ctx context.Context, clientID, username, password string) (*Credential, apperrors.Error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
		"client_id":  {clientID},
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.exchangeLocked(ctx, form)
}

// Refresh performs a refresh_token grant. An empty refreshToken uses
// the cached one.
func (tc *TokenClient) Refresh(ctx context.Context, refreshToken string) (*Credential, apperrors.Error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if refreshToken == "" {
		refreshToken = tc.cred.RefreshToken
	}
	if refreshToken == "" {
		return nil, ErrAuthFailed.New("no refresh token available")
	}
	return tc.exchangeLocked(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

// AccessToken returns the cached access token, refreshing it once when
// expired. A failed refresh clears the refresh token so the caller
// must re-authorize from scratch. Returns "" when no usable token is
// available; no network call is made when there is nothing to refresh.
func (tc *TokenClient) AccessToken(ctx context.Context) string {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.cred.AccessToken != "" && tc.cred.ExpirationTime >= time.Now().Unix() {
		return tc.cred.AccessToken
	}
	if tc.cred.RefreshToken == "" {
		return ""
	}
	if _, err := tc.exchangeLocked(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tc.cred.RefreshToken},
	}); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("token refresh failed")
		tc.cred.RefreshToken = ""
		return ""
	}
	return tc.cred.AccessToken
}

// Revoke revokes the current access token at the platform. The cached
// credential is cleared regardless of the network outcome, making the
// call idempotent from the client's perspective.
func (tc *TokenClient) Revoke(ctx context.Context) bool {
	tc.mu.Lock()
	token := tc.cred.AccessToken
	tc.cred = Credential{}
	tc.mu.Unlock()

	if token == "" {
		// Nothing to revoke upstream; the local cache is already clear.
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, tc.baseURL+revokePath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	rsp, err := tc.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("token revoke failed")
		return false
	}
	defer rsp.Body.Close()
	return rsp.StatusCode == http.StatusNoContent
}

// exchangeLocked runs one token endpoint exchange and caches the
// resulting credential. Callers must hold tc.mu.
func (tc *TokenClient) exchangeLocked(ctx context.Context, form url.Values) (*Credential, apperrors.Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, ErrAuthFailed.Err(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rsp, err := tc.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("token exchange failed")
		return nil, ErrAuthFailed.Err(err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		return nil, ErrAuthFailed.New("token endpoint returned status " + rsp.Status)
	}
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, ErrAuthFailed.Err(err)
	}

	idToken := gjson.GetBytes(body, "id_token").String()
	refreshToken := gjson.GetBytes(body, "refresh_token").String()
	if idToken == "" || refreshToken == "" || !gjson.GetBytes(body, "token_type").Exists() {
		return nil, ErrInvalidCredential
	}

	exp, ok := tokenExpiry(idToken)
	if !ok {
		return nil, ErrInvalidCredential.New("identity token has no expiry")
	}

	// The identity token must verify against the issuer's keys
	// before anything is cached.
	if valid, _ := tc.verifier.Validate(ctx, idToken, nil); !valid {
		return nil, ErrInvalidCredential.New("identity token failed validation")
	}

	tc.cred = Credential{
		AccessToken:    idToken,
		RefreshToken:   refreshToken,
		ExpirationTime: exp,
	}
	cred := tc.cred
	return &cred, nil
}

// tokenExpiry decodes the exp claim from a JWT payload segment without
// verifying the token.
func tokenExpiry(token string) (int64, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, false
	}
	exp := gjson.GetBytes(payload, "exp")
	if !exp.Exists() {
		return 0, false
	}
	return exp.Int(), true
}
