package server

import (
	"net/http"
	"strings"

	"github.com/nerd4ever/kaya-seed/internal/common/httpx"
	"github.com/nerd4ever/kaya-seed/internal/seedsrv/config"
	"github.com/rs/zerolog/log"
)

// tokenGate authenticates every artifact route. The three rejection
// modes carry distinct wire codes so the marketplace can tell a missing
// header from a malformed one from a bad token.
func (s *SeedServer) tokenGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httpx.ErrAuthorizationRequired(r).Send(w)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			httpx.ErrAuthorizationMustBeBearer(r).Send(w)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		valid, claims := s.validator.Validate(r.Context(), token, config.Config().RequiredRoles)
		if !valid {
			httpx.ErrAuthorizationRejected(r).Send(w)
			return
		}
		if sub, ok := claims["sub"].(string); ok {
			log.Ctx(r.Context()).Debug().Str("subject", sub).Msg("caller authenticated")
		}
		next.ServeHTTP(w, r)
	})
}
