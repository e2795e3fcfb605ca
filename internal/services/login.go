package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-linegate/linegate/internal/apperr"
	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/store"
)

const flowLogin = "login"

// LoginService drives the LINE Login flow: authorization redirect,
// callback handling, identity reconciliation, and session minting.
type LoginService struct {
	flow    *line.LoginFlow
	api     *line.LoginAPI
	store   *store.Store
	users   *UserService
	metrics metrics.Recorder
}

func NewLoginService(
	flow *line.LoginFlow,
	api *line.LoginAPI,
	s *store.Store,
	users *UserService,
	m metrics.Recorder,
) *LoginService {
	return &LoginService{
		flow:    flow,
		api:     api,
		store:   s,
		users:   users,
		metrics: m,
	}
}

// AuthorizationURL builds the provider redirect with a freshly minted
// state.
func (s *LoginService) AuthorizationURL() (string, string, error) {
	return s.flow.AuthorizationURL("")
}

// CallbackResult is what a completed login callback produces.
type CallbackResult struct {
	SessionID string
	User      *models.User
}

// HandleCallback completes the login flow. The provider reporting an
// error, or omitting the code, fails the callback before the token
// endpoint is ever contacted.
func (s *LoginService) HandleCallback(
	ctx context.Context,
	code, errParam, errDesc string,
) (*CallbackResult, error) {
	if errParam != "" {
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, apperr.Wrap(apperr.CodeAuthCallback, apperr.TierLine, "auth",
			&line.ProviderError{ErrCode: errParam, Description: errDesc})
	}
	if code == "" {
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, apperr.Wrap(apperr.CodeAuthCallback, apperr.TierLine, "auth",
			line.ErrMissingCode)
	}

	start := time.Now()
	tokens, err := s.api.ExchangeCode(ctx, s.flow.Config().TokenURL, s.flow.TokenExchangeRequest(code))
	s.metrics.RecordProviderRequest(flowLogin, time.Since(start))
	if err != nil {
		s.metrics.RecordTokenExchange(flowLogin, false)
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, err
	}
	s.metrics.RecordTokenExchange(flowLogin, true)

	claims, err := s.flow.DecodeIDToken(tokens.IDToken)
	if err != nil {
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, apperr.Wrap(apperr.CodeAuthJWT, apperr.TierLine, "auth", err)
	}

	user, err := s.store.UpsertLineLogin(store.LineLoginUpsert{
		Sub:          claims.Subject,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Expiry:       tokens.Expiry,
		Name:         claims.Name,
		Picture:      claims.Picture,
		Email:        claims.Email,
	})
	if err != nil {
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "line_login", err)
	}

	sessionID, err := s.users.CreateSession(ctx, user, models.LoginKindLine)
	if err != nil {
		s.metrics.RecordOAuthCallback(flowLogin, false)
		return nil, err
	}

	s.metrics.RecordOAuthCallback(flowLogin, true)
	s.metrics.RecordLogin(models.LoginKindLine, true)
	log.Printf("[LoginService] user %d logged in via LINE", user.ID)

	return &CallbackResult{SessionID: sessionID, User: user}, nil
}

// RefreshTokens redeems the stored refresh token and persists the new
// token pair.
func (s *LoginService) RefreshTokens(ctx context.Context, userID int64) error {
	login, err := s.store.GetLineLoginByUserID(userID)
	if err != nil {
		return err
	}

	tokens, err := s.api.RefreshToken(ctx, s.flow.Config().TokenURL,
		s.flow.RefreshTokenRequest(login.RefreshToken))
	if err != nil {
		s.metrics.RecordTokenRefresh(false)
		return err
	}

	refreshToken := tokens.RefreshToken
	if refreshToken == "" {
		// Provider may omit the refresh token when it stays valid.
		refreshToken = login.RefreshToken
	}
	if err := s.store.UpdateLineTokens(userID, tokens.AccessToken, refreshToken, tokens.Expiry); err != nil {
		s.metrics.RecordTokenRefresh(false)
		return apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "line_login", err)
	}

	s.metrics.RecordTokenRefresh(true)
	return nil
}

// VerifyAccessToken checks the stored login access token against the
// provider's verify endpoint. Expired-but-refreshable tokens are
// refreshed transparently, then reported valid.
func (s *LoginService) VerifyAccessToken(ctx context.Context, userID int64) (bool, error) {
	login, err := s.store.GetLineLoginByUserID(userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if time.Now().After(login.ExpiresIn) {
		if err := s.RefreshTokens(ctx, userID); err != nil {
			return false, nil
		}
		return true, nil
	}

	_, err = s.api.VerifyToken(ctx, s.flow.VerifyURL, login.AccessToken)
	if err != nil {
		var statusErr *line.UnexpectedStatusError
		if errors.As(err, &statusErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout drops the session.
func (s *LoginService) Logout(ctx context.Context, sessionID string) error {
	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.RecordLogout()
	return nil
}
