// Package apperr defines the internal error envelope. Every internal
// failure carries a stable numeric code plus tier/entity tags so the
// route layer can attach a machine-readable error to a response without
// leaking internals; the human-readable detail travels separately.
package apperr

import "fmt"

// Tiers
const (
	TierLine  = "line"
	TierCache = "cache"
	TierDB    = "db"
)

// Stable error codes. The code identifies the failure class, the
// tier/entity pair identifies where it happened.
const (
	CodeAuthJWT          = 3000 // identity token decode failure
	CodeAuthCallback     = 3001 // rejected or malformed callback
	CodeUnexpectedStatus = 3100 // provider returned a non-200 status
	CodeSchemaValidation = 3300 // provider response shape mismatch
	CodeCacheSave        = 5000 // cache write failure
	CodeDBUpdate         = 5100 // datastore write failure
)

// Error is the internal error envelope.
type Error struct {
	Code   int
	Tier   string
	Entity string
	Detail string
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d]::%s::%s::%s", e.Code, e.Tier, e.Entity, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error envelope.
func New(code int, tier, entity, detail string) *Error {
	return &Error{Code: code, Tier: tier, Entity: entity, Detail: detail}
}

// Wrap creates an error envelope around a cause.
func Wrap(code int, tier, entity string, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{Code: code, Tier: tier, Entity: entity, Detail: detail, Err: err}
}
