// Package line implements the OAuth2 orchestration against the LINE
// platform: authorization-URL construction, token exchange payloads,
// identity-token decoding, and the provider API calls for the Login and
// Notify flows.
package line

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-linegate/linegate/internal/util"

	"github.com/golang-jwt/jwt/v5"
)

// FlowConfig is the static per-flow OAuth2 client registration.
// Immutable after construction; one instance per flow kind.
type FlowConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	RedirectURL  string
}

const stateLength = 32

// Flow builds authorization URLs, token-endpoint request bodies, and
// decodes identity tokens for one OAuth2 client registration.
type Flow struct {
	cfg FlowConfig

	// mintState: a fresh random state is generated per authorization
	// URL (login). When false the caller-supplied state is reused
	// verbatim (notify, which binds the grant to a live session id).
	mintState bool
}

// LoginFlow is the LINE Login variant.
type LoginFlow struct {
	Flow
	VerifyURL string
}

// NotifyFlow is the LINE Notify variant.
type NotifyFlow struct {
	Flow
	NotifyURL string
	StatusURL string
	RevokeURL string
}

// NewLoginFlow creates the login flow manager.
func NewLoginFlow(cfg FlowConfig, verifyURL string) *LoginFlow {
	return &LoginFlow{
		Flow:      Flow{cfg: cfg, mintState: true},
		VerifyURL: verifyURL,
	}
}

// NewNotifyFlow creates the notification-grant flow manager.
func NewNotifyFlow(cfg FlowConfig, notifyURL, statusURL, revokeURL string) *NotifyFlow {
	return &NotifyFlow{
		Flow:      Flow{cfg: cfg, mintState: false},
		NotifyURL: notifyURL,
		StatusURL: statusURL,
		RevokeURL: revokeURL,
	}
}

// Config returns the flow's client registration.
func (f *Flow) Config() FlowConfig {
	return f.cfg
}

// AuthorizationURL builds the provider authorization URL. It returns
// the URL and the state parameter embedded in it. The login flow mints
// a fresh random state per call; the notify flow requires the caller's
// state (the active session id) and embeds it unchanged, because the
// callback is matched against that exact value.
func (f *Flow) AuthorizationURL(state string) (string, string, error) {
	if f.mintState {
		minted, err := util.CryptoRandomString(stateLength)
		if err != nil {
			return "", "", fmt.Errorf("failed to generate state: %w", err)
		}
		state = minted
	} else if state == "" {
		return "", "", errors.New("authorization URL requires a caller-supplied state")
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", f.cfg.ClientID)
	q.Set("redirect_uri", f.cfg.RedirectURL)
	q.Set("state", state)

	scope := strings.ReplaceAll(
		url.QueryEscape(strings.Join(f.cfg.Scopes, " ")),
		"+", "%20",
	)

	return f.cfg.AuthURL + "?" + q.Encode() + "&scope=" + scope, state, nil
}

// TokenExchangeRequest builds the form body for redeeming an
// authorization code.
func (f *Flow) TokenExchangeRequest(code string) TokenExchangeRequest {
	return TokenExchangeRequest{
		GrantType:    GrantTypeAuthorizationCode,
		Code:         code,
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURI:  f.cfg.RedirectURL,
	}
}

// RefreshTokenRequest builds the form body for the refresh_token grant.
func (f *LoginFlow) RefreshTokenRequest(refreshToken string) RefreshTokenRequest {
	return RefreshTokenRequest{
		GrantType:    GrantTypeRefreshToken,
		RefreshToken: refreshToken,
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
	}
}

// DecodeIDToken parses the provider's identity token and validates that
// its audience equals this flow's client id.
//
// The signature is NOT verified: the token arrives over TLS directly
// from the token endpoint in the same response as the access token, and
// the provider's key material is not configured here. This is a
// deliberate, documented exception; treat the claims as provider-
// asserted, not independently proven.
func (f *Flow) DecodeIDToken(idToken string) (*IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, &IDTokenError{Err: err}
	}

	aud, err := audience(claims)
	if err != nil {
		return nil, &IDTokenError{Err: err}
	}
	if aud != f.cfg.ClientID {
		return nil, &IDTokenError{
			Err: fmt.Errorf("audience %q does not match client id", aud),
		}
	}

	decoded, err := mapIDTokenClaims(claims, aud)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func audience(claims jwt.MapClaims) (string, error) {
	switch v := claims["aud"].(type) {
	case string:
		return v, nil
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s, nil
			}
		}
	}
	return "", errors.New("identity token has no usable audience claim")
}

func mapIDTokenClaims(claims jwt.MapClaims, aud string) (*IDTokenClaims, error) {
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	if sub == "" || name == "" {
		return nil, &SchemaValidationError{
			Err: errors.New("identity token missing sub or name claim"),
		}
	}

	decoded := &IDTokenClaims{
		Subject:  sub,
		Audience: aud,
		Name:     name,
	}
	decoded.Issuer, _ = claims["iss"].(string)
	decoded.Picture, _ = claims["picture"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		decoded.ExpiresAt = int64(exp)
	}
	if iat, ok := claims["iat"].(float64); ok {
		decoded.IssuedAt = int64(iat)
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		decoded.Email = &email
	}
	if nonce, ok := claims["nonce"].(string); ok && nonce != "" {
		decoded.Nonce = &nonce
	}
	if amr, ok := claims["amr"].([]any); ok {
		for _, m := range amr {
			if s, ok := m.(string); ok {
				decoded.Amr = append(decoded.Amr, s)
			}
		}
	}

	return decoded, nil
}
