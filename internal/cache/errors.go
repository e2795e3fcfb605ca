package cache

import "errors"

// Sentinel errors shared by every backend. Callers branch on
// ErrCacheMiss; the other two mark an unreachable backend or a stored
// value that no longer decodes into T.
var (
	ErrCacheMiss        = errors.New("cache: key not found")
	ErrCacheUnavailable = errors.New("cache: backend unavailable")
	ErrInvalidValue     = errors.New("cache: invalid value")
)
