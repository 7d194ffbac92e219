package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aignite/internal/middleware"
	"aignite/internal/models"
	"aignite/internal/service"
)

type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type UpdateProfileRequest struct {
	Name        *string                   `json:"name"`
	Preferences *models.PreferencesUpdate `json:"preferences"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity.User.Public()})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, service.ProfileUpdate{
		Name:        req.Name,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user.Public(),
	})
}

// UpdatePreferences takes the partial preferences object directly as the
// request body, matching what the web client sends.
func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}

	var req models.PreferencesUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, service.ProfileUpdate{
		Preferences: &req,
	})
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Preferences updated successfully",
		"user":    user.Public(),
	})
}

func (h *UserHandler) respondUpdateError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	h.logger.Error("Failed to update profile", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile"})
}
