package handlers

import (
	"net/http"

	"appispot/middleware"
	"appispot/services/user"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler exposes account endpoints.
type UserHandler struct {
	Service user.UserService
}

// RegisterHandler handles POST /auth/register.
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	logger := utils.GetLogger()

	var req user.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.Service.Register(req)
	if err != nil {
		logger.Error("Registration failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// LoginHandler handles POST /auth/login.
func (h *UserHandler) LoginHandler(c *gin.Context) {
	logger := utils.GetLogger()

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.Service.Authenticate(req.Email, req.Password)
	if err != nil {
		logger.Warn("Login failed", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserHandler handles GET /users/:id.
func (h *UserHandler) GetUserHandler(c *gin.Context) {
	id := c.Param("id")
	usr, err := h.Service.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if usr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, usr)
}

// UpdateUserHandler handles PUT /users/:id. Users may only update themselves.
func (h *UserHandler) UpdateUserHandler(c *gin.Context) {
	logger := utils.GetLogger()
	id := c.Param("id")

	if middleware.CallerID(c) != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot update another user's profile"})
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	usr, err := h.Service.Update(id, updates)
	if err != nil {
		logger.Error("Profile update failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, usr)
}

// DeleteUserHandler handles DELETE /users/:id.
func (h *UserHandler) DeleteUserHandler(c *gin.Context) {
	id := c.Param("id")
	if middleware.CallerID(c) != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete another user's account"})
		return
	}
	if err := h.Service.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
