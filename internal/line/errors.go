package line

import (
	"errors"
	"fmt"

	"github.com/go-linegate/linegate/internal/apperr"
)

var (
	// ErrMissingCode indicates the callback carried no authorization code
	ErrMissingCode = errors.New("callback missing authorization code")

	// ErrInvalidState indicates the callback state does not resolve to a
	// live session
	ErrInvalidState = errors.New("callback state does not match a live session")
)

// ProviderError is returned when the provider redirects back with an
// error parameter instead of a code. The token endpoint must not be
// contacted in that case.
type ProviderError struct {
	ErrCode     string // provider's error parameter
	Description string // provider's error_description parameter
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected authorization: %s (%s)", e.ErrCode, e.Description)
}

// UnexpectedStatusError is returned when a provider endpoint answers
// with a non-200 status after transport-level retries are exhausted.
// Body is the provider's response verbatim so callers can forward the
// provider error detail.
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	return apperr.New(
		apperr.CodeUnexpectedStatus,
		apperr.TierLine,
		"status_code",
		fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body),
	).Error()
}

// SchemaValidationError is returned when a 200 response fails to parse
// into the expected shape. Payload is kept for diagnosis, never coerced.
type SchemaValidationError struct {
	Payload []byte
	Err     error
}

func (e *SchemaValidationError) Error() string {
	return apperr.Wrap(
		apperr.CodeSchemaValidation,
		apperr.TierLine,
		"schema_validation",
		e.Err,
	).Error()
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// IDTokenError is returned when the provider's identity token cannot be
// decoded.
type IDTokenError struct {
	Err error
}

func (e *IDTokenError) Error() string {
	return apperr.Wrap(apperr.CodeAuthJWT, apperr.TierLine, "auth_jwt", e.Err).Error()
}

func (e *IDTokenError) Unwrap() error {
	return e.Err
}
