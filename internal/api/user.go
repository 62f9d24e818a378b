package api

import (
	"net/http"

	"github.com/chatzone/chatzone/internal/middleware"
	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/chatzone/chatzone/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles the contact directory and the caller's own profile.
type UserHandler struct {
	repo      repository.UserRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, publisher realtime.Publisher, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, publisher: publisher, logger: logger}
}

// List handles GET /v1/users
//
// Returns every user except the caller; the contact sidebar never shows
// the viewer themselves. An empty table yields [], not null.
func (h *UserHandler) List(c *gin.Context) {
	selfID := middleware.GetUserID(c)

	users, err := h.repo.ListOthers(c.Request.Context(), selfID)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetMe handles GET /v1/users/me
//
// /users/me is idiomatic for "my own profile": the client doesn't need to
// know its own UUID, the token identifies it.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	// In the JWT but not in the DB: shouldn't happen, the row is created
	// during signup. 404 rather than 500.
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	IsOnline  bool   `json:"is_online"`
}

// UpdateMe handles PUT /v1/users/me
//
// Upserts the caller's profile row by primary key and publishes a users
// UPDATE event so every open directory refreshes the entry in place.
// ID and email always come from the token, never the body.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := models.User{
		ID:        middleware.GetUserID(c),
		Email:     middleware.GetEmail(c),
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		IsOnline:  req.IsOnline,
	}

	user, err := h.repo.UpsertProfile(c.Request.Context(), profile)
	if err != nil {
		h.logger.Error("failed to upsert profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), realtime.UserUpdated(*user)); err != nil {
		// The row is committed; a lost event only delays directory
		// refresh until the next bulk load. Log, don't fail the request.
		h.logger.Error("failed to publish user update", zap.Error(err))
	}

	c.JSON(http.StatusOK, user)
}
