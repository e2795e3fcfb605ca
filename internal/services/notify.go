package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/go-linegate/linegate/internal/apperr"
	"github.com/go-linegate/linegate/internal/cache"
	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/store"
)

const (
	flowNotify         = "notify"
	cacheNameCred      = "credential"
	credentialKeySpace = "credential:"
)

// ErrNotifyNotGranted is returned when a user has no live notification
// grant.
var ErrNotifyNotGranted = errors.New("notification grant missing or revoked")

// NotifyService drives the notification grant flow and message
// delivery. The grant's access token is cached without expiry and
// invalidated only on revoke or overwritten on re-grant.
type NotifyService struct {
	flow    *line.NotifyFlow
	api     *line.NotifyAPI
	store   *store.Store
	users   *UserService
	creds   cache.Cache[models.CachedCredential]
	metrics metrics.Recorder
}

func NewNotifyService(
	flow *line.NotifyFlow,
	api *line.NotifyAPI,
	s *store.Store,
	users *UserService,
	creds cache.Cache[models.CachedCredential],
	m metrics.Recorder,
) *NotifyService {
	return &NotifyService{
		flow:    flow,
		api:     api,
		store:   s,
		users:   users,
		creds:   creds,
		metrics: m,
	}
}

func credentialKey(userID int64) string {
	return credentialKeySpace + strconv.FormatInt(userID, 10)
}

// AuthorizationURL builds the provider redirect for a live session.
// The session id itself is the OAuth state, binding the eventual grant
// back to the user who asked for it.
func (s *NotifyService) AuthorizationURL(ctx context.Context, sessionID string) (string, error) {
	if _, err := s.users.GetSession(ctx, sessionID); err != nil {
		return "", err
	}
	authURL, _, err := s.flow.AuthorizationURL(sessionID)
	return authURL, err
}

// HandleCallback completes the grant flow. The state must resolve to a
// live session before the token endpoint is contacted; a stale or
// forged state never costs a provider round trip.
func (s *NotifyService) HandleCallback(
	ctx context.Context,
	state, code, errParam, errDesc string,
) (*models.SessionUser, error) {
	session, err := s.users.GetSession(ctx, state)
	if err != nil {
		s.metrics.RecordOAuthCallback(flowNotify, false)
		if errors.Is(err, ErrSessionNotFound) {
			return nil, apperr.Wrap(apperr.CodeAuthCallback, apperr.TierLine, "notify",
				line.ErrInvalidState)
		}
		return nil, err
	}

	if errParam != "" {
		s.metrics.RecordOAuthCallback(flowNotify, false)
		return nil, apperr.Wrap(apperr.CodeAuthCallback, apperr.TierLine, "notify",
			&line.ProviderError{ErrCode: errParam, Description: errDesc})
	}
	if code == "" {
		s.metrics.RecordOAuthCallback(flowNotify, false)
		return nil, apperr.Wrap(apperr.CodeAuthCallback, apperr.TierLine, "notify",
			line.ErrMissingCode)
	}

	start := time.Now()
	tokens, err := s.api.ExchangeCode(ctx, s.flow.Config().TokenURL, s.flow.TokenExchangeRequest(code))
	s.metrics.RecordProviderRequest(flowNotify, time.Since(start))
	if err != nil {
		s.metrics.RecordTokenExchange(flowNotify, false)
		s.metrics.RecordOAuthCallback(flowNotify, false)
		return nil, err
	}
	s.metrics.RecordTokenExchange(flowNotify, true)

	if _, err := s.store.UpsertLineNotify(session.UserID, tokens.AccessToken); err != nil {
		s.metrics.RecordOAuthCallback(flowNotify, false)
		return nil, apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "line_notify", err)
	}

	// Cache write is best-effort: the datastore already holds the
	// grant, the next read repopulates the cache.
	cred := models.CachedCredential{AccessToken: tokens.AccessToken}
	if err := s.creds.Set(ctx, credentialKey(session.UserID), cred, cache.NoExpiry); err != nil {
		log.Printf("[NotifyService] %v",
			apperr.Wrap(apperr.CodeCacheSave, apperr.TierCache, "credential", err))
	}

	s.metrics.RecordOAuthCallback(flowNotify, true)
	return session, nil
}

// accessToken resolves the user's live grant token, cache first, then
// the datastore. Revoked grants never produce a token.
func (s *NotifyService) accessToken(ctx context.Context, userID int64) (string, error) {
	if cred, err := s.creds.Get(ctx, credentialKey(userID)); err == nil {
		s.metrics.RecordCacheRead(cacheNameCred, true)
		return cred.AccessToken, nil
	}
	s.metrics.RecordCacheRead(cacheNameCred, false)

	grant, err := s.store.GetLineNotifyByUserID(userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", ErrNotifyNotGranted
		}
		return "", err
	}
	if grant.IsRevoked {
		return "", ErrNotifyNotGranted
	}

	cred := models.CachedCredential{AccessToken: grant.AccessToken}
	if err := s.creds.Set(ctx, credentialKey(userID), cred, cache.NoExpiry); err != nil {
		log.Printf("[NotifyService] %v",
			apperr.Wrap(apperr.CodeCacheSave, apperr.TierCache, "credential", err))
	}
	return grant.AccessToken, nil
}

// Status reports whether the user holds a working grant. A missing or
// revoked grant is false, not an error; so is a token the provider no
// longer accepts.
func (s *NotifyService) Status(ctx context.Context, userID int64) (bool, error) {
	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotifyNotGranted) {
			return false, nil
		}
		return false, err
	}

	if _, err := s.api.Status(ctx, s.flow.StatusURL, accessToken); err != nil {
		var statusErr *line.UnexpectedStatusError
		if errors.As(err, &statusErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke invalidates the grant at the provider first, then marks it
// revoked locally and drops the cached credential.
func (s *NotifyService) Revoke(ctx context.Context, userID int64) error {
	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.api.Revoke(ctx, s.flow.RevokeURL, accessToken); err != nil {
		s.metrics.RecordNotifyRevoke(false)
		return err
	}

	if err := s.store.RevokeLineNotify(userID); err != nil {
		s.metrics.RecordNotifyRevoke(false)
		return apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "line_notify", err)
	}

	if err := s.creds.Delete(ctx, credentialKey(userID)); err != nil {
		log.Printf("[NotifyService] credential cache delete for user %d: %v", userID, err)
	}

	s.metrics.RecordNotifyRevoke(true)
	return nil
}

// Send pushes a message through the user's grant and appends it to the
// delivery log.
func (s *NotifyService) Send(
	ctx context.Context,
	userID int64,
	msg line.NotifyMessage,
) (*models.NotifyRecord, error) {
	accessToken, err := s.accessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = s.api.Send(ctx, s.flow.NotifyURL, accessToken, msg)
	s.metrics.RecordProviderRequest(flowNotify, time.Since(start))
	if err != nil {
		s.metrics.RecordNotifyPush(false)
		return nil, err
	}
	s.metrics.RecordNotifyPush(true)

	record := &models.NotifyRecord{
		UserID:         userID,
		CreateAt:       time.Now(),
		Message:        msg.Message,
		ImageThumbnail: msg.ImageThumbnail,
		ImageFullSize:  msg.ImageFullSize,
	}
	if err := s.store.CreateNotifyRecord(record); err != nil {
		return nil, apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "line_notify_records", err)
	}
	return record, nil
}

// Messages lists the user's delivery log, most recent first.
func (s *NotifyService) Messages(userID int64, limit int) ([]models.NotifyRecord, error) {
	return s.store.ListNotifyRecords(userID, limit)
}
