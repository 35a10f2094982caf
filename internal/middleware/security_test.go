package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	expected := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Cache-Control":          "no-store, no-cache, must-revalidate, proxy-revalidate",
		"Pragma":                 "no-cache",
		"Expires":                "0",
	}
	for header, value := range expected {
		assert.Equal(t, value, w.Header().Get(header), "header %s", header)
	}
	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'none'")
	assert.Contains(t, csp, "script-src 'none'")
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		cfg         config.Config
		origin      string
		shouldAllow bool
	}{
		{"development localhost", config.Config{Environment: "development"}, "http://localhost:3000", true},
		{"development localhost 8080", config.Config{Environment: "development"}, "http://localhost:8080", true},
		{"development unknown origin", config.Config{Environment: "development"}, "https://malicious-site.com", false},
		{"production unknown origin", config.Config{Environment: "production"}, "https://malicious-site.com", false},
		{"production configured origin", config.Config{Environment: "production", AllowedOrigins: "https://admissions.example.edu, https://staff.example.edu"}, "https://staff.example.edu", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			router := gin.New()
			router.Use(CORSMiddleware(&cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "test"})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tt.shouldAllow {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
			assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestCORSMiddleware_PreflightRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware(&config.Config{Environment: "development"}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestInputValidationMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		method         string
		body           string
		contentType    string
		userAgent      string
		expectedStatus int
		expectedError  string
	}{
		{"valid POST", "POST", `{}`, "application/json", "Mozilla/5.0", http.StatusOK, ""},
		{"valid PATCH", "PATCH", `{}`, "application/json; charset=utf-8", "Mozilla/5.0", http.StatusOK, ""},
		{"POST without body or Content-Type", "POST", "", "", "Mozilla/5.0", http.StatusOK, ""},
		{"POST body without Content-Type", "POST", `{}`, "", "Mozilla/5.0", http.StatusBadRequest, "Content-Type header is required"},
		{"POST with invalid Content-Type", "POST", `<p>`, "text/html", "Mozilla/5.0", http.StatusUnsupportedMediaType, "Unsupported content type"},
		{"missing User-Agent", "GET", "", "", "", http.StatusBadRequest, "User-Agent header is required"},
		{"sqlmap", "GET", "", "", "sqlmap/1.4.9", http.StatusForbidden, "Request blocked for security reasons"},
		{"nikto", "GET", "", "", "Nikto/2.1.6", http.StatusForbidden, "Request blocked for security reasons"},
		{"script tag", "GET", "", "", "Mozilla <script>alert('xss')</script>", http.StatusForbidden, "Request blocked for security reasons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(InputValidationMiddleware(1024))
			router.Any("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "test"})
			})

			req := httptest.NewRequest(tt.method, "/test", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.userAgent != "" {
				req.Header.Set("User-Agent", tt.userAgent)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Contains(t, w.Body.String(), tt.expectedError)
			}
		})
	}
}

func TestInputValidationMiddleware_BodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(InputValidationMiddleware(16))
	router.POST("/test", func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{"title":"a title well past sixteen bytes"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimitingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitingMiddleware(5, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send("192.168.1.1:12345").Code)
	}
	limited := send("192.168.1.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("192.168.1.2:12345").Code, "other clients are unaffected")
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	limiter := newRateLimiter(2, time.Minute)
	start := time.Now()

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.allow(fmt.Sprintf("10.0.0.%d", i), start))
	}
	assert.Equal(t, 50, limiter.size())

	assert.True(t, limiter.allow("10.0.1.1", start.Add(30*time.Second)))
	assert.Equal(t, 51, limiter.size(), "no sweep inside the window")

	assert.True(t, limiter.allow("10.0.1.2", start.Add(2*time.Minute)))
	assert.Equal(t, 1, limiter.size(), "idle clients are swept")

	assert.True(t, limiter.allow("10.0.1.2", start.Add(2*time.Minute+time.Second)))
	assert.False(t, limiter.allow("10.0.1.2", start.Add(2*time.Minute+2*time.Second)))
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.DebugLevel)
	router := gin.New()
	router.Use(LoggingMiddleware(logger.FromZap(zap.New(core))))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	for _, path := range []string{"/test?x=1", "/missing"} {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("User-Agent", "test-agent")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/test?x=1", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusNotFound), entries[1].ContextMap()["status"])
}
