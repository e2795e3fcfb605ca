package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-linegate/linegate/internal/retry"
)

// LoginAPI sends LINE Login token-endpoint requests through the shared
// retry client and validates the responses.
type LoginAPI struct {
	client *retry.Client
}

// NewLoginAPI creates a LoginAPI on top of the shared retry client.
func NewLoginAPI(client *retry.Client) *LoginAPI {
	return &LoginAPI{client: client}
}

// ExchangeCode redeems an authorization code at the token endpoint.
func (a *LoginAPI) ExchangeCode(
	ctx context.Context,
	endpoint string,
	req TokenExchangeRequest,
) (*LoginTokenResponse, error) {
	var resp LoginTokenResponse
	if err := postForm(ctx, a.client, endpoint, req.Values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshToken redeems a refresh token for a new access token.
func (a *LoginAPI) RefreshToken(
	ctx context.Context,
	endpoint string,
	req RefreshTokenRequest,
) (*LoginTokenResponse, error) {
	var resp LoginTokenResponse
	if err := postForm(ctx, a.client, endpoint, req.Values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyToken checks a login access token against the verify endpoint.
func (a *LoginAPI) VerifyToken(
	ctx context.Context,
	endpoint, accessToken string,
) (*VerifyTokenResponse, error) {
	verifyURL := endpoint + "?access_token=" + url.QueryEscape(accessToken)

	status, body, err := a.client.Get(ctx, verifyURL, nil)
	if err != nil {
		return nil, err
	}
	var resp VerifyTokenResponse
	if err := decodeResponse(endpoint, status, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NotifyAPI sends LINE Notify requests through the shared retry client
// and validates the responses.
type NotifyAPI struct {
	client *retry.Client
}

// NewNotifyAPI creates a NotifyAPI on top of the shared retry client.
func NewNotifyAPI(client *retry.Client) *NotifyAPI {
	return &NotifyAPI{client: client}
}

// ExchangeCode redeems the notify authorization code. The returned
// access token has no expiry.
func (a *NotifyAPI) ExchangeCode(
	ctx context.Context,
	endpoint string,
	req TokenExchangeRequest,
) (*NotifyTokenResponse, error) {
	var resp NotifyTokenResponse
	if err := postForm(ctx, a.client, endpoint, req.Values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Send pushes a notification message on behalf of the granted user.
func (a *NotifyAPI) Send(
	ctx context.Context,
	endpoint, accessToken string,
	msg NotifyMessage,
) (*NotifyResponse, error) {
	status, body, err := a.client.PostForm(
		ctx, endpoint, msg.Values(), bearerHeader(accessToken),
	)
	if err != nil {
		return nil, err
	}
	var resp NotifyResponse
	if err := decodeResponse(endpoint, status, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status checks whether the access token is still valid at the provider.
func (a *NotifyAPI) Status(
	ctx context.Context,
	endpoint, accessToken string,
) (*NotifyStatusResponse, error) {
	status, body, err := a.client.Get(ctx, endpoint, bearerHeader(accessToken))
	if err != nil {
		return nil, err
	}
	var resp NotifyStatusResponse
	if err := decodeResponse(endpoint, status, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Revoke invalidates the access token at the provider.
func (a *NotifyAPI) Revoke(ctx context.Context, endpoint, accessToken string) error {
	status, body, err := a.client.PostForm(
		ctx, endpoint, url.Values{}, bearerHeader(accessToken),
	)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &UnexpectedStatusError{Endpoint: endpoint, StatusCode: status, Body: body}
	}
	return nil
}

func bearerHeader(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}

func postForm(
	ctx context.Context,
	client *retry.Client,
	endpoint string,
	form url.Values,
	out any,
) error {
	status, body, err := client.PostForm(ctx, endpoint, form, nil)
	if err != nil {
		return err
	}
	return decodeResponse(endpoint, status, body, out)
}

// decodeResponse maps a provider response onto out. A non-200 status is
// surfaced with the body verbatim; a 200 that does not match the
// expected shape is a schema-validation fault, never coerced.
func decodeResponse(endpoint string, status int, body []byte, out any) error {
	if status != http.StatusOK {
		return &UnexpectedStatusError{Endpoint: endpoint, StatusCode: status, Body: body}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &SchemaValidationError{Payload: body, Err: err}
	}
	if v, ok := out.(validator); ok {
		if err := v.validate(); err != nil {
			return &SchemaValidationError{Payload: body, Err: err}
		}
	}
	return nil
}
