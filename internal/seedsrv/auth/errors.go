package auth

import (
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

// Base auth error
var (
	ErrAuth apperrors.Error = apperrors.New("auth error").
		SetStatusCode(http.StatusInternalServerError).
		SetCode("authorization_rejected")
)

// Authorization errors
var (
	ErrAuthFailed apperrors.Error = ErrAuth.New("authorization failed").
			SetStatusCode(http.StatusUnauthorized)
	ErrInvalidCredential apperrors.Error = ErrAuth.New("identity provider returned an unusable credential").
				SetStatusCode(http.StatusUnauthorized)
)

// Key discovery errors
var (
	ErrKeyDiscovery apperrors.Error = ErrAuth.New("unable to discover signing keys").
			SetStatusCode(http.StatusUnauthorized)
	ErrKeyNotFound apperrors.Error = ErrAuth.New("signing key not found").
			SetStatusCode(http.StatusUnauthorized)
)
