package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerd4ever/kaya-seed/internal/common/apperrors"
)

// Error is the marketplace error envelope returned to callers on any
// failure. Address and Date are stamped from the inbound request just
// before the envelope is written.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"errorDescription,omitempty"`
	Address     string `json:"address"`
	Date        string `json:"date"`
	StatusCode  int    `json:"-"`
}

// CodeApplicationError is the envelope code for failures with no more
// specific classification.
const CodeApplicationError = "artifact_provision_failed"

// NewError builds an envelope from an apperrors.Error, taking its wire
// code and HTTP status.
func NewError(r *http.Request, err apperrors.Error) *Error {
	code := err.Code()
	if code == "" {
		code = CodeApplicationError
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	e := &Error{
		Code:        code,
		Description: err.ErrorAll(),
		StatusCode:  statusCode,
	}
	e.Stamp(r)
	return e
}

// Stamp fills in the caller address and envelope timestamp. Idempotent.
func (e *Error) Stamp(r *http.Request) {
	if e.Address == "" && r != nil {
		e.Address = r.RemoteAddr
	}
	if e.Date == "" {
		e.Date = time.Now().Format(time.RFC3339)
	}
}

func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	if e.Date == "" {
		e.Date = time.Now().Format(time.RFC3339)
	}
	body, err := json.Marshal(e)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to parse error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(body)
}

func (e *Error) Error() string {
	return e.Code
}

func (current Error) Is(other error) bool {
	return current.Error() == other.Error()
}

// Common Errors

func ErrApplicationError(r *http.Request, desc ...string) *Error {
	var s string
	if len(desc) > 0 {
		s = desc[0]
	} else {
		s = "unable to process request"
	}
	e := &Error{
		Code:        CodeApplicationError,
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
	e.Stamp(r)
	return e
}

func ErrAuthorizationRequired(r *http.Request) *Error {
	e := &Error{
		Code:       "authorization_required",
		StatusCode: http.StatusUnauthorized,
	}
	e.Stamp(r)
	return e
}

func ErrAuthorizationMustBeBearer(r *http.Request) *Error {
	e := &Error{
		Code:       "authorization_must_be_bearer",
		StatusCode: http.StatusUnauthorized,
	}
	e.Stamp(r)
	return e
}

func ErrAuthorizationRejected(r *http.Request) *Error {
	e := &Error{
		Code:       "authorization_rejected",
		StatusCode: http.StatusUnauthorized,
	}
	e.Stamp(r)
	return e
}
