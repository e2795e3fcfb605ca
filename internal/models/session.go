package models

// Login kind stored in the session cache entry.
const (
	LoginKindLine  = "line"
	LoginKindLocal = "general"
)

// SessionUser is the session cache value bridging the callback-time
// cache to later requests. Keyed by the opaque session identifier.
type SessionUser struct {
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	LoginToken string `json:"login_token"` // signed session JWT
	LoginKind  string `json:"login_kind"`
}

// CachedCredential is the credential cache value, keyed by user id.
// Untimed: invalidated only on revoke or overwritten on re-grant.
type CachedCredential struct {
	AccessToken string `json:"access_token"`
}
