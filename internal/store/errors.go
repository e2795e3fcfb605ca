package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrSubjectConflict is returned when a LINE subject is already bound
	// to a different user.
	ErrSubjectConflict = errors.New("line subject already bound")
)
