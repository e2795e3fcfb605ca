package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/go-linegate/linegate/internal/middleware"
	"github.com/go-linegate/linegate/internal/services"
	"github.com/go-linegate/linegate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// sessionStateKey holds the pending OAuth state in the cookie
	// session between the redirect and the callback.
	sessionStateKey = "line_login_state"
	// sessionRedirectKey holds the post-login destination.
	sessionRedirectKey = "login_redirect"
)

type AuthHandler struct {
	loginService *services.LoginService
	userService  *services.UserService
	baseURL      string
	landingURL   string
	sessionTTL   time.Duration
	secureCookie bool
}

func NewAuthHandler(
	ls *services.LoginService,
	us *services.UserService,
	baseURL, landingURL string,
	sessionTTL time.Duration,
	secureCookie bool,
) *AuthHandler {
	return &AuthHandler{
		loginService: ls,
		userService:  us,
		baseURL:      baseURL,
		landingURL:   landingURL,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, sessionID,
		int(h.sessionTTL.Seconds()), "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
}

// Login starts the LINE Login flow: mints a state, parks it in the
// cookie session, and bounces the browser to the provider.
func (h *AuthHandler) Login(c *gin.Context) {
	authURL, state, err := h.loginService.AuthorizationURL()
	if err != nil {
		writeError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionStateKey, state)

	if redirectTo := c.Query("redirect"); util.IsRedirectSafe(redirectTo, h.baseURL) {
		session.Set(sessionRedirectKey, redirectTo)
	}

	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to persist login state"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback completes the LINE Login flow. The state must match the one
// parked at redirect time; everything else is delegated to the service.
func (h *AuthHandler) Callback(c *gin.Context) {
	session := sessions.Default(c)

	expectedState, _ := session.Get(sessionStateKey).(string)
	session.Delete(sessionStateKey)

	redirectTo, _ := session.Get(sessionRedirectKey).(string)
	session.Delete(sessionRedirectKey)
	if err := session.Save(); err != nil {
		log.Printf("[AuthHandler] state cleanup: %v", err)
	}

	if expectedState == "" || c.Query("state") != expectedState {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "state mismatch"})
		return
	}

	result, err := h.loginService.HandleCallback(
		c.Request.Context(),
		c.Query("code"),
		c.Query("error"),
		c.Query("error_description"),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSessionCookie(c, result.SessionID)

	landing := h.landingURL
	if redirectTo != "" {
		landing = redirectTo
	}
	c.Redirect(http.StatusMovedPermanently, landing)
}

type localLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LocalLogin authenticates an email/password account and opens a
// session.
func (h *AuthHandler) LocalLogin(c *gin.Context) {
	var req localLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	sessionID, user, err := h.userService.AuthenticateLocal(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.setSessionCookie(c, sessionID)
	c.JSON(http.StatusOK, gin.H{
		"user_id": user.ID,
		"name":    user.Name,
	})
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a password-backed account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.userService.RegisterLocal(req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"name":    user.Name,
	})
}

// Logout drops the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	if err := h.loginService.Logout(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"detail": "success"})
}

// Me returns the session's user summary.
func (h *AuthHandler) Me(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	if entry == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    entry.UserID,
		"name":       entry.Name,
		"login_kind": entry.LoginKind,
	})
}

// VerifyToken reports whether the user's stored login access token is
// still accepted by the provider.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	if entry == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unauthorized"})
		return
	}

	valid, err := h.loginService.VerifyAccessToken(c.Request.Context(), entry.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
