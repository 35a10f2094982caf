package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/services"
)

// AuthHandler handles authentication operations
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthResponse is returned by login and refresh
type AuthResponse struct {
	*models.LoginResponse
	CSRFToken string `json:"csrf_token"`
}

// generateCSRFToken generates a cryptographically secure CSRF token
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isSecure(c *gin.Context) bool {
	return c.Request.Header.Get("X-Forwarded-Proto") == "https" || c.Request.TLS != nil
}

// setSecureCookie sets an HTTP-only cookie
func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetCookie(name, value, maxAge, "/", "", isSecure(c), true)
}

// clearCookie expires a cookie
func clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", isSecure(c), true)
}

// withSession sets the auth and csrf cookies for a token pair
func (h *AuthHandler) withSession(c *gin.Context, resp *models.LoginResponse) (*AuthResponse, error) {
	csrfToken, err := generateCSRFToken()
	if err != nil {
		return nil, err
	}
	maxAge := int(time.Until(resp.ExpiresAt).Seconds())
	setSecureCookie(c, "auth_token", resp.Token, maxAge)
	setSecureCookie(c, "csrf_token", csrfToken, maxAge)
	return &AuthResponse{LoginResponse: resp, CSRFToken: csrfToken}, nil
}

// Login authenticates a user
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format", err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.withSession(c, resp)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Register creates a self-service account with the user role
func (h *AuthHandler) Register(c *gin.Context) {
	h.register(c, nil)
}

// CreateUser lets an administrator create an account with any role
func (h *AuthHandler) CreateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	h.register(c, &a)
}

func (h *AuthHandler) register(c *gin.Context, by *models.Actor) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format", err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req, by)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user":    user,
	})
}

// RefreshToken issues a new token pair from a refresh token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format", err)
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := h.withSession(c, resp)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Logout clears the session cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	clearCookie(c, "auth_token")
	clearCookie(c, "csrf_token")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": a})
}
