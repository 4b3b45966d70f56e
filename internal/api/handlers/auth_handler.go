package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/api/middleware"
	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/models"
)

type AuthHandler struct {
	Auth *auth.Service
	Log  *slog.Logger
}

type SignUpRequest struct {
	Email    string      `json:"email" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     models.Role `json:"role" binding:"required"`
	DriverID string      `json:"driverId"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.Auth.SignUp(c.Request.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		DriverID: req.DriverID,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	session, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignOut revokes the token used for this request.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.Claims(c)); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the application user behind the token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	user, err := h.Auth.Resolve(c.Request.Context(), bearer(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "expiresAt": claims.ExpiresAt.Time})
}
