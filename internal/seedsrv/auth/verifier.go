package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Claims is the decoded claim set of a validated token.
type Claims map[string]any

// allowedAlgorithms is the asymmetric signing method allow-list for
// inbound marketplace tokens.
var allowedAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

// Verifier validates inbound bearer tokens against the signing key set
// published by the token's issuer. Validation never fails with an
// error: every failure mode collapses to a false result.
type Verifier struct {
	keys *keyCache
}

func NewVerifier(timeout, keySetTTL time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	return &Verifier{
		keys: newKeyCache(client, keySetTTL),
	}
}

// Validate checks the token's structure, expiry, signature and role
// claims. requiredClaims, when non-empty, lists claim names that must
// each be present under the token's "roles" claim object. The decoded
// claims are returned only on success.
func (v *Verifier) Validate(ctx context.Context, token string, requiredClaims []string) (bool, Claims) {
	logger := log.Ctx(ctx)

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false, nil
	}
	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false, nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false, nil
	}

	kid := gjson.GetBytes(header, "kid").String()
	alg := gjson.GetBytes(header, "alg").String()
	iss := gjson.GetBytes(payload, "iss").String()
	exp := gjson.GetBytes(payload, "exp")
	if kid == "" || alg == "" || iss == "" || !exp.Exists() {
		return false, nil
	}

	// Expiry is checked before any network call so expired tokens are
	// rejected without touching the issuer.
	if exp.Int() < time.Now().Unix() {
		return false, nil
	}

	if !allowedAlgorithms[alg] {
		logger.Debug().Str("alg", alg).Msg("token uses a disallowed signing algorithm")
		return false, nil
	}

	key, kerr := v.keys.KeyFor(ctx, iss, kid)
	if kerr != nil {
		logger.Debug().Err(kerr).Str("issuer", iss).Msg("unable to resolve signing key")
		return false, nil
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{alg}))
	parsed, perr := parser.Parse(token, func(t *jwt.Token) (any, error) {
		return key, nil
	})
	if perr != nil || !parsed.Valid {
		logger.Debug().Err(perr).Msg("token signature validation failed")
		return false, nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false, nil
	}

	if len(requiredClaims) > 0 {
		roles, ok := claims["roles"].(map[string]any)
		if !ok {
			return false, nil
		}
		for _, desired := range requiredClaims {
			if _, ok := roles[desired]; !ok {
				return false, nil
			}
		}
	}

	return true, Claims(claims)
}
