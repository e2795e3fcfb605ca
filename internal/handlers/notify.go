package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/middleware"
	"github.com/go-linegate/linegate/internal/services"

	"github.com/gin-gonic/gin"
)

type NotifyHandler struct {
	notifyService *services.NotifyService
	landingURL    string
}

func NewNotifyHandler(ns *services.NotifyService, landingURL string) *NotifyHandler {
	return &NotifyHandler{
		notifyService: ns,
		landingURL:    landingURL,
	}
}

// Authorize starts the notification grant flow for the current
// session. The session id rides along as the OAuth state.
func (h *NotifyHandler) Authorize(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)

	authURL, err := h.notifyService.AuthorizationURL(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback completes the grant flow and sends the browser back to the
// landing page. This endpoint is unauthenticated: the state carries
// the session binding.
func (h *NotifyHandler) Callback(c *gin.Context) {
	_, err := h.notifyService.HandleCallback(
		c.Request.Context(),
		c.Query("state"),
		c.Query("code"),
		c.Query("error"),
		c.Query("error_description"),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusMovedPermanently, h.landingURL)
}

// Status reports whether the user holds a working grant.
func (h *NotifyHandler) Status(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	ok, err := h.notifyService.Status(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": ok})
}

// Revoke invalidates the grant.
func (h *NotifyHandler) Revoke(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	if err := h.notifyService.Revoke(c.Request.Context(), userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "success"})
}

type sendMessageRequest struct {
	Message        string  `json:"message" binding:"required,max=1000"`
	ImageThumbnail *string `json:"image_thumbnail" binding:"omitempty,url"`
	ImageFullSize  *string `json:"image_full_size" binding:"omitempty,url"`
}

// Send pushes a message through the user's grant and echoes the
// recorded entry.
func (h *NotifyHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	entry := middleware.SessionFromContext(c)
	if entry == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "unauthorized"})
		return
	}

	record, err := h.notifyService.Send(c.Request.Context(), entry.UserID, line.NotifyMessage{
		Message:        req.Message,
		ImageThumbnail: req.ImageThumbnail,
		ImageFullSize:  req.ImageFullSize,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      entry.Name,
		"create_at": record.CreateAt.Format(time.RFC3339),
		"message":   record.Message,
	})
}

type messageResponse struct {
	Message        string  `json:"message"`
	ImageThumbnail *string `json:"image_thumbnail,omitempty"`
	ImageFullSize  *string `json:"image_full_size,omitempty"`
	CreateAt       string  `json:"create_at"`
}

// Messages lists the user's delivery log, most recent first.
func (h *NotifyHandler) Messages(c *gin.Context) {
	userID := c.GetInt64(middleware.ContextUserID)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	records, err := h.notifyService.Messages(userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	messages := make([]messageResponse, 0, len(records))
	for _, r := range records {
		messages = append(messages, messageResponse{
			Message:        r.Message,
			ImageThumbnail: r.ImageThumbnail,
			ImageFullSize:  r.ImageFullSize,
			CreateAt:       r.CreateAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
