package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")
	id := uuid.New()

	token, expiresAt, err := svc.GenerateToken(Claims{UserID: id, Email: "a@example.com", Role: "admin"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "admin", claims.Role)

	_, err = svc.ValidateRefreshToken(token)
	assert.Error(t, err, "access token must not be accepted as refresh token")
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")
	refresh, _, err := svc.GenerateRefreshToken(Claims{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.ValidateToken(refresh)
	assert.Error(t, err)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestValidateTokenRejectsOtherSecretAndExpired(t *testing.T) {
	token, _, err := NewJWTService("one").GenerateToken(Claims{UserID: uuid.New()})
	require.NoError(t, err)
	_, err = NewJWTService("two").ValidateToken(token)
	assert.Error(t, err)

	old := NewJWTService("one")
	old.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _, err := old.GenerateToken(Claims{UserID: uuid.New()})
	require.NoError(t, err)
	_, err = NewJWTService("one").ValidateToken(expired)
	assert.Error(t, err)
}

func TestJWTMiddlewareAndRoles(t *testing.T) {
	secret := "middleware-secret"
	svc := NewJWTService(secret)

	r := gin.New()
	r.Use(JWTMiddleware(secret))
	r.GET("/actor", func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/validators", RequireRoles(models.RoleAdmin, models.RoleAcademicsUser), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	call := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call("/actor", ""))
	assert.Equal(t, http.StatusUnauthorized, call("/actor", "garbage"))

	userToken, _, _ := svc.GenerateToken(Claims{UserID: uuid.New(), Role: string(models.RoleUser)})
	academicsToken, _, _ := svc.GenerateToken(Claims{UserID: uuid.New(), Role: string(models.RoleAcademicsUser)})

	assert.Equal(t, http.StatusOK, call("/actor", userToken))
	assert.Equal(t, http.StatusForbidden, call("/validators", userToken))
	assert.Equal(t, http.StatusNoContent, call("/validators", academicsToken))
}

func TestCSRFOnlyAppliesToCookieAuth(t *testing.T) {
	secret := "csrf-secret"
	token, _, _ := NewJWTService(secret).GenerateToken(Claims{UserID: uuid.New(), Role: "admin"})

	r := gin.New()
	r.Use(JWTMiddleware(secret), CSRFMiddleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "abc"})
	req.Header.Set("X-CSRF-Token", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
