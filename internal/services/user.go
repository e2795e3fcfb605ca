package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-linegate/linegate/internal/apperr"
	"github.com/go-linegate/linegate/internal/cache"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/store"
	"github.com/go-linegate/linegate/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmailTaken         = errors.New("email already registered")
)

// Session scopes granted per login kind.
var sessionScopes = map[string][]string{
	models.LoginKindLine:  {"profile", "notify"},
	models.LoginKindLocal: {"profile"},
}

// UserService owns accounts and their sessions. Sessions live in the
// session cache under an opaque identifier; the datastore is never
// consulted on a session read.
type UserService struct {
	store      *store.Store
	sessions   cache.Cache[models.SessionUser]
	codec      *token.Codec
	sessionTTL time.Duration
}

func NewUserService(
	s *store.Store,
	sessions cache.Cache[models.SessionUser],
	codec *token.Codec,
	sessionTTL time.Duration,
) *UserService {
	return &UserService{
		store:      s,
		sessions:   sessions,
		codec:      codec,
		sessionTTL: sessionTTL,
	}
}

// CreateSession mints a session for an authenticated user: an opaque
// session id pointing at a cache entry that carries the signed session
// token. A failed cache write is fatal, the caller has no session to
// hand out.
func (s *UserService) CreateSession(
	ctx context.Context,
	user *models.User,
	loginKind string,
) (string, error) {
	loginToken, err := s.codec.Encode(token.SessionClaims{
		UserID: strconv.FormatInt(user.ID, 10),
		Scopes: sessionScopes[loginKind],
	})
	if err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	entry := models.SessionUser{
		UserID:     user.ID,
		Name:       user.Name,
		LoginToken: loginToken,
		LoginKind:  loginKind,
	}
	if err := s.sessions.Set(ctx, sessionID, entry, s.sessionTTL); err != nil {
		return "", apperr.Wrap(apperr.CodeCacheSave, apperr.TierCache, "session", err)
	}
	return sessionID, nil
}

// GetSession resolves a session id to its cached entry.
func (s *UserService) GetSession(ctx context.Context, sessionID string) (*models.SessionUser, error) {
	entry, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// DeleteSession removes a session. Deleting an expired or unknown
// session is not an error.
func (s *UserService) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// RegisterLocal creates a password-backed account.
func (s *UserService) RegisterLocal(name, email, password string) (*models.User, error) {
	if _, err := s.store.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.store.CreateLocalUser(name, email, string(hash))
}

// AuthenticateLocal verifies an email/password pair. Accounts created
// through the login flow have no password and never authenticate here.
func (s *UserService) AuthenticateLocal(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if user.PasswordHash == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(user.ID); err != nil {
		return "", nil, apperr.Wrap(apperr.CodeDBUpdate, apperr.TierDB, "users", err)
	}

	sessionID, err := s.CreateSession(ctx, user, models.LoginKindLocal)
	if err != nil {
		return "", nil, err
	}
	return sessionID, user, nil
}
