package apperrors

// Error is a chainable error carrying an HTTP status code and a stable
// wire code used in marketplace error envelopes. Derived errors inherit
// the status and wire code of their base unless overridden.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	MsgErr(msg string, err ...error) Error
	Msg(msg string) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
	SetCode(code string) Error
	Code() string
}
