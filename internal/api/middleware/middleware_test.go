package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		Issuer:         "clinic-identity",
		AccessTokenTTL: 15 * time.Minute,
	})
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	patientToken, _ := mgr.GenerateAccessToken("user-1", "PATIENT")
	unknownRoleToken, _ := mgr.GenerateAccessToken("user-2", "GUEST")

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"|"+c.GetString("role"))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"Valid", "Bearer " + patientToken, 200},
		{"MissingHeader", "", 401},
		{"WrongScheme", "Token " + patientToken, 401},
		{"Garbage", "Bearer not-a-jwt", 401},
		{"UnknownRole", "Bearer " + unknownRoleToken, 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == 200 && w.Body.String() != "user-1|PATIENT" {
				t.Errorf("上下文注入不正确: %s", w.Body.String())
			}
		})
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		r.GET("/admin", func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
			c.Next()
		}, RoleAuth(model.RoleAdmin, model.RoleDoctor), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	tests := []struct {
		role       string
		wantStatus int
	}{
		{"ADMIN", 204},
		{"DOCTOR", 204},
		{"PATIENT", 403},
		{"", 401},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		newRouter(tt.role).ServeHTTP(w, httptest.NewRequest("GET", "/admin", nil))
		if w.Code != tt.wantStatus {
			t.Errorf("role=%q expected %d, got %d", tt.role, tt.wantStatus, w.Code)
		}
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("小请求体 expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("超限请求体 expected 413, got %d", w.Code)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, "upstream-id")
	r.ServeHTTP(w, req)
	if w.Body.String() != "upstream-id" || w.Header().Get(requestIDHeader) != "upstream-id" {
		t.Errorf("应沿用上游 Request-ID，实际 %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("a", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if got := w.Body.String(); len(got) != 36 {
		t.Errorf("过长的 Request-ID 应被替换为 UUID，实际 %q", got)
	}
}

// ── RateLimit ──

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/appointments", RateLimit(nil, 1, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/appointments", nil))
		if w.Code != http.StatusCreated {
			t.Fatalf("未配置 Redis 时不应限流，第 %d 次得到 %d", i+1, w.Code)
		}
	}
}
