package middleware

import (
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/httpx"
	"github.com/rs/zerolog/log"
)

func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := httpx.NewResponseWriter(w)
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().Msgf("Panic occurred: %v", err)
				if !rw.Written() {
					httpx.ErrApplicationError(r, "Unable to process request. Please try again later.").Send(rw)
				}
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
