package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	idp := newFakeIDP(t)
	v := idp.verifier(5 * time.Minute)
	ctx := context.Background()

	token := idp.mint(jwt.MapClaims{
		"sub":   "marketplace-bot",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"roles": map[string]any{"seller": true},
	})

	valid, claims := v.Validate(ctx, token, nil)
	require.True(t, valid)
	require.NotNil(t, claims)
	assert.Equal(t, "marketplace-bot", claims["sub"])

	// Second validation reuses the cached key set.
	valid, _ = v.Validate(ctx, token, nil)
	assert.True(t, valid)
	assert.Equal(t, int32(1), idp.discoveryHits.Load())
}

func TestValidateRejectsMalformedTokens(t *testing.T) {
	idp := newFakeIDP(t)
	v := idp.verifier(5 * time.Minute)
	ctx := context.Background()

	future := time.Now().Add(time.Hour).Unix()

	noKid := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": idp.srv.URL,
		"exp": future,
	})
	noKidToken, err := noKid.SignedString(idp.key)
	require.NoError(t, err)

	noIss := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"exp": future})
	noIss.Header["kid"] = idp.kid
	noIssToken, err := noIss.SignedString(idp.key)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"iss": idp.srv.URL})
	noExp.Header["kid"] = idp.kid
	noExpToken, err := noExp.SignedString(idp.key)
	require.NoError(t, err)

	symmetric := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": idp.srv.URL,
		"exp": future,
	})
	symmetric.Header["kid"] = idp.kid
	symmetricToken, err := symmetric.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"not a jwt", "definitely-not-a-token"},
		{"two segments", "eyJhbGciOiJSUzI1NiJ9.eyJpc3MiOiJ4In0"},
		{"missing kid", noKidToken},
		{"missing iss", noIssToken},
		{"missing exp", noExpToken},
		{"unknown kid", idp.mintWithKid("no-such-key", jwt.MapClaims{"exp": future})},
		{"symmetric alg", symmetricToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, claims := v.Validate(ctx, tt.token, nil)
			assert.False(t, valid)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateExpiredTokenSkipsNetwork(t *testing.T) {
	idp := newFakeIDP(t)
	v := idp.verifier(5 * time.Minute)

	token := idp.mint(jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	valid, claims := v.Validate(context.Background(), token, nil)
	assert.False(t, valid)
	assert.Nil(t, claims)
	assert.Equal(t, int32(0), idp.discoveryHits.Load(), "expired tokens must be rejected without contacting the issuer")
}

func TestValidateTamperedToken(t *testing.T) {
	idp := newFakeIDP(t)
	v := idp.verifier(5 * time.Minute)

	token := idp.mint(jwt.MapClaims{
		"sub": "honest-caller",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tampered := token[:len(token)-4] + "AAAA"

	valid, _ := v.Validate(context.Background(), tampered, nil)
	assert.False(t, valid)
}

func TestValidateRequiredClaims(t *testing.T) {
	idp := newFakeIDP(t)
	v := idp.verifier(5 * time.Minute)
	ctx := context.Background()

	future := time.Now().Add(time.Hour).Unix()
	withRoles := idp.mint(jwt.MapClaims{
		"exp":   future,
		"roles": map[string]any{"kaya-seed": true, "seller": true},
	})
	withoutRoles := idp.mint(jwt.MapClaims{"exp": future})

	valid, _ := v.Validate(ctx, withRoles, []string{"kaya-seed"})
	assert.True(t, valid)

	valid, _ = v.Validate(ctx, withRoles, []string{"kaya-seed", "seller"})
	assert.True(t, valid)

	valid, _ = v.Validate(ctx, withRoles, []string{"admin"})
	assert.False(t, valid, "missing role must fail validation")

	valid, _ = v.Validate(ctx, withoutRoles, []string{"kaya-seed"})
	assert.False(t, valid, "token with no roles claim cannot satisfy required roles")

	// No required claims: the roles claim is irrelevant.
	valid, _ = v.Validate(ctx, withoutRoles, nil)
	assert.True(t, valid)
}

func TestKeySetCacheTTL(t *testing.T) {
	idp := newFakeIDP(t)
	ctx := context.Background()
	token := idp.mint(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	// Zero TTL disables caching entirely.
	v := idp.verifier(0)
	for i := 0; i < 3; i++ {
		valid, _ := v.Validate(ctx, token, nil)
		require.True(t, valid)
	}
	assert.Equal(t, int32(3), idp.discoveryHits.Load())
}
