package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/mocks"
)

const testPhone = "+919876543210"

func setupAuthRouter(tokens *mocks.MockTokenService, sessions *mocks.MockSessionRepository, required bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/probe", AuthMiddleware(tokens, sessions, required), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": SessionID(c)})
	})
	return r
}

func liveSessions(phone string) *mocks.MockSessionRepository {
	repo := mocks.NewMockSessionRepository()
	repo.FindByIDFunc = func(ctx context.Context, id string) (*domain.Session, error) {
		if id != "sess-1" {
			return nil, domain.ErrSessionNotFound
		}
		now := time.Now()
		return domain.NewSession(id, phone, []domain.RoleProfile{{Role: domain.RoleBroker, Phone: phone}}, now, now.Add(time.Hour)), nil
	}
	return repo
}

func claimsFor(phone string) *mocks.MockTokenService {
	tokens := mocks.NewMockTokenService()
	tokens.ValidateSessionTokenFunc = func(token string) (*domain.TokenClaims, error) {
		switch token {
		case "good":
			return &domain.TokenClaims{SessionID: "sess-1", Phone: phone}, nil
		case "orphan":
			return &domain.TokenClaims{SessionID: "sess-gone", Phone: phone}, nil
		case "old":
			return nil, domain.ErrTokenExpired
		default:
			return nil, domain.ErrTokenInvalid
		}
	}
	return tokens
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		required   bool
		tokenPhone string
		wantStatus int
		wantID     string
	}{
		{name: "valid token", header: "Bearer good", required: true, tokenPhone: testPhone, wantStatus: http.StatusOK, wantID: "sess-1"},
		{name: "missing header", required: true, tokenPhone: testPhone, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", required: true, tokenPhone: testPhone, wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer old", required: true, tokenPhone: testPhone, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer junk", required: true, tokenPhone: testPhone, wantStatus: http.StatusUnauthorized},
		{name: "session gone", header: "Bearer orphan", required: true, tokenPhone: testPhone, wantStatus: http.StatusUnauthorized},
		{name: "phone mismatch", header: "Bearer good", required: true, tokenPhone: "+919999999999", wantStatus: http.StatusUnauthorized},
		{name: "optional without header", tokenPhone: testPhone, wantStatus: http.StatusOK},
		{name: "optional with bad token", header: "Bearer junk", tokenPhone: testPhone, wantStatus: http.StatusOK},
		{name: "optional with valid token", header: "Bearer good", tokenPhone: testPhone, wantStatus: http.StatusOK, wantID: "sess-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupAuthRouter(claimsFor(tt.tokenPhone), liveSessions(testPhone), tt.required)
			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"session_id":"`+tt.wantID+`"`)
			} else {
				assert.Contains(t, w.Body.String(), domain.LoginPath)
			}
		})
	}
}

func TestAuthMiddleware_SessionLookupFailure(t *testing.T) {
	repo := mocks.NewMockSessionRepository()
	repo.FindByIDFunc = func(ctx context.Context, id string) (*domain.Session, error) {
		return nil, errors.New("redis: connection refused")
	}
	r := setupAuthRouter(claimsFor(testPhone), repo, true)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	assert.Nil(t, NewRateLimiter(0))

	r := gin.New()
	r.Use(NewRateLimiter(10).Handler())
	r.GET("/otp", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/otp", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	var disabled *RateLimiter
	open := gin.New()
	open.Use(disabled.Handler())
	open.GET("/otp", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/otp", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}
