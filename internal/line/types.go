package line

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// Grant types sent to the token endpoint.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// TokenExchangeRequest is the form body for redeeming an authorization
// code at the token endpoint.
type TokenExchangeRequest struct {
	GrantType    string
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Values encodes the request as application/x-www-form-urlencoded data.
func (r TokenExchangeRequest) Values() url.Values {
	v := url.Values{}
	v.Set("grant_type", r.GrantType)
	v.Set("code", r.Code)
	v.Set("client_id", r.ClientID)
	v.Set("client_secret", r.ClientSecret)
	v.Set("redirect_uri", r.RedirectURI)
	return v
}

// RefreshTokenRequest is the form body for the refresh_token grant
// (login flow only).
type RefreshTokenRequest struct {
	GrantType    string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// Values encodes the request as application/x-www-form-urlencoded data.
func (r RefreshTokenRequest) Values() url.Values {
	v := url.Values{}
	v.Set("grant_type", r.GrantType)
	v.Set("refresh_token", r.RefreshToken)
	v.Set("client_id", r.ClientID)
	v.Set("client_secret", r.ClientSecret)
	return v
}

// LoginTokenResponse is the token endpoint response for the login flow.
// The provider reports expiry in seconds; it is stored as absolute time.
type LoginTokenResponse struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scope        string
	TokenType    string
	IDToken      string
}

type loginTokenWire struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    json.RawMessage `json:"expires_in"`
	Scope        string          `json:"scope"`
	TokenType    string          `json:"token_type"`
	IDToken      string          `json:"id_token"`
}

// UnmarshalJSON converts the relative expires_in (seconds, number or
// numeric string) into an absolute expiry.
func (r *LoginTokenResponse) UnmarshalJSON(data []byte) error {
	var wire loginTokenWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	seconds, err := parseSeconds(wire.ExpiresIn)
	if err != nil {
		return err
	}

	r.AccessToken = wire.AccessToken
	r.RefreshToken = wire.RefreshToken
	r.Expiry = time.Now().Add(time.Duration(seconds) * time.Second)
	r.Scope = wire.Scope
	r.TokenType = wire.TokenType
	r.IDToken = wire.IDToken
	return nil
}

func parseSeconds(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// validator is implemented by response schemas with required fields.
type validator interface {
	validate() error
}

func (r *LoginTokenResponse) validate() error {
	if r.AccessToken == "" || r.IDToken == "" {
		return errors.New("token response missing access_token or id_token")
	}
	return nil
}

// NotifyTokenResponse is the token endpoint response for the notify
// flow: an access token with no expiry, valid until revoked.
type NotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (r *NotifyTokenResponse) validate() error {
	if r.AccessToken == "" {
		return errors.New("token response missing access_token")
	}
	return nil
}

// IDTokenClaims are the decoded claims of the provider's identity token.
type IDTokenClaims struct {
	Issuer    string
	Subject   string
	Audience  string
	ExpiresAt int64
	IssuedAt  int64
	Name      string
	Picture   string
	Email     *string
	Nonce     *string
	Amr       []string
}

// VerifyTokenResponse is the login access-token verification response.
type VerifyTokenResponse struct {
	Scope     string `json:"scope"`
	ClientID  string `json:"client_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// NotifyMessage is the payload pushed through the notify endpoint.
type NotifyMessage struct {
	Message        string
	ImageThumbnail *string
	ImageFullSize  *string
}

// Values encodes the message as form data for the notify endpoint.
func (m NotifyMessage) Values() url.Values {
	v := url.Values{}
	v.Set("message", m.Message)
	if m.ImageThumbnail != nil {
		v.Set("imageThumbnail", *m.ImageThumbnail)
	}
	if m.ImageFullSize != nil {
		v.Set("imageFullsize", *m.ImageFullSize)
	}
	return v
}

// NotifyResponse is the notify endpoint response.
type NotifyResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// NotifyStatusResponse is the notify status endpoint response.
type NotifyStatusResponse struct {
	Status int `json:"status"`
}
