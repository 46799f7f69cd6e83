package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
	"github.com/rs/zerolog/log"
)

type Response struct {
	StatusCode  int
	Location    string //in case of http.StatusAccepted
	Response    any
	ContentType string
}

type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc. Failures are
// always written as the marketplace error envelope; the caller's remote
// address and the current time are stamped here so handlers never build
// envelopes themselves.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Stamp(r)
				httperror.Send(w)
			} else if appErr, ok := err.(apperrors.Error); ok {
				NewError(r, appErr).Send(w)
			} else {
				ErrApplicationError(r, err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError(r).Send(w)
			return
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		if rsp.ContentType == "application/json" {
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		} else {
			ErrApplicationError(r, "unsupported response type").Send(w)
		}
	})
}

// SendJsonRsp encodes rsp as JSON and writes it with the given status code.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, rsp any, location ...string) {
	body, err := json.Marshal(rsp)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if len(location) > 0 {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	w.Write(body)
}

type ResponseHandlerParam struct {
	Method  string
	Path    string
	Handler RequestHandler
}
