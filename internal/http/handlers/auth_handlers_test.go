package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/middleware"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/mocks"
)

const testSessionID = "sess-1"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(identity *mocks.MockIdentityService) *gin.Engine {
	h := NewAuthHandlers(identity, nil)
	r := gin.New()
	r.POST("/auth/otp/request", h.RequestOTP)
	r.GET("/auth/otp/resend", h.ResendIn)
	r.POST("/auth/otp/verify", h.VerifyOTP)
	r.GET("/auth/authorize", h.Authorize)

	authed := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.ContextSessionID, testSessionID)
		c.Next()
	})
	authed.GET("/auth/session", h.Session)
	authed.POST("/auth/session/role", h.SelectRole)
	authed.POST("/auth/session/switch", h.SwitchRole)
	authed.POST("/auth/logout", h.Logout)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func multiRoleSession() *domain.Session {
	now := time.Now()
	return domain.NewSession(testSessionID, "+919876543210", []domain.RoleProfile{
		{Role: domain.RoleBroker, ProfileID: "b-1"},
		{Role: domain.RoleSocietyOwner, ProfileID: "so-1"},
	}, now, now.Add(time.Hour))
}

func TestAuthHandlers_RequestOTP(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "issued",
			body:       OTPRequest{Phone: "9876543210"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing phone",
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed phone",
			body:       OTPRequest{Phone: "12"},
			err:        fmt.Errorf("%w: %q", domain.ErrMalformedPhone, "12"),
			wantStatus: http.StatusBadRequest,
			wantError:  "malformed_phone",
		},
		{
			name:       "cooldown",
			body:       OTPRequest{Phone: "9876543210"},
			err:        &domain.CooldownError{Remaining: 42 * time.Second},
			wantStatus: http.StatusTooManyRequests,
			wantError:  "resend_cooldown",
		},
		{
			name:       "delivery failed",
			body:       OTPRequest{Phone: "9876543210"},
			err:        domain.ErrDeliveryFailed,
			wantStatus: http.StatusBadGateway,
			wantError:  "delivery_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := mocks.NewMockIdentityService()
			identity.RequestOTPFunc = func(ctx context.Context, rawPhone string) (*domain.IssuedChallenge, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				// Issued on a clock far from the wall clock.
				issuedAt := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
				return &domain.IssuedChallenge{
					Phone:             "+919876543210",
					ExpiresAt:         issuedAt.Add(5 * time.Minute),
					ResendAvailableAt: issuedAt.Add(time.Minute),
					ResendIn:          time.Minute,
				}, nil
			}

			w, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/otp/request", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}
			if tt.wantStatus == http.StatusOK {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "+919876543210", data["phone"])
				assert.Equal(t, float64(60), data["resend_in"])
			}
		})
	}
}

func TestAuthHandlers_RequestOTPCooldownHeaders(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	identity.RequestOTPFunc = func(ctx context.Context, rawPhone string) (*domain.IssuedChallenge, error) {
		return nil, &domain.CooldownError{Remaining: 1500 * time.Millisecond}
	}

	w, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/otp/request", OTPRequest{Phone: "9876543210"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, float64(2), body["retry_after"])
	assert.Equal(t, true, body["retryable"])
}

func TestAuthHandlers_ResendIn(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	identity.ResendAvailableInFunc = func(ctx context.Context, rawPhone string) (time.Duration, error) {
		assert.Equal(t, "9876543210", rawPhone)
		return 12*time.Second + 300*time.Millisecond, nil
	}
	r := setupRouter(identity)

	w, body := doJSON(t, r, http.MethodGet, "/auth/otp/resend?phone=9876543210", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(13), body["data"].(map[string]interface{})["resend_in"])

	w, _ = doJSON(t, r, http.MethodGet, "/auth/otp/resend", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlers_VerifyOTP(t *testing.T) {
	tests := []struct {
		name         string
		result       *domain.VerifyResult
		err          error
		wantStatus   int
		wantError    string
		wantNext     string
		wantRedirect string
	}{
		{
			name:         "multiple roles",
			result:       &domain.VerifyResult{Phone: "+919876543210", Session: multiRoleSession(), AccessToken: "jwt", ExpiresIn: 3600},
			wantStatus:   http.StatusOK,
			wantNext:     "select_role",
			wantRedirect: domain.RoleSelectionPath,
		},
		{
			name: "single role goes to dashboard",
			result: &domain.VerifyResult{
				Phone: "+919876543210",
				Session: domain.NewSession(testSessionID, "+919876543210",
					[]domain.RoleProfile{{Role: domain.RoleDeveloper}}, time.Now(), time.Now().Add(time.Hour)),
				AccessToken: "jwt",
			},
			wantStatus:   http.StatusOK,
			wantNext:     "dashboard",
			wantRedirect: "/developer/dashboard",
		},
		{
			name:         "no profiles",
			result:       &domain.VerifyResult{Phone: "+919876543210", NeedsOnboarding: true},
			wantStatus:   http.StatusOK,
			wantNext:     "onboarding",
			wantRedirect: domain.OnboardingPath,
		},
		{
			name:       "invalid code",
			err:        &domain.InvalidCodeError{AttemptsRemaining: 3},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_code",
		},
		{
			name:       "expired",
			err:        domain.ErrExpired,
			wantStatus: http.StatusGone,
			wantError:  "otp_expired",
		},
		{
			name:       "attempts exhausted",
			err:        domain.ErrAttemptsExhausted,
			wantStatus: http.StatusTooManyRequests,
			wantError:  "attempts_exhausted",
		},
		{
			name:       "no challenge",
			err:        domain.ErrNoActiveChallenge,
			wantStatus: http.StatusNotFound,
			wantError:  "no_active_challenge",
		},
		{
			name:       "backend unavailable",
			err:        fmt.Errorf("lookup: %w", domain.ErrBackendUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "backend_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := mocks.NewMockIdentityService()
			identity.VerifyOTPFunc = func(ctx context.Context, rawPhone, code string) (*domain.VerifyResult, error) {
				return tt.result, tt.err
			}

			w, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/otp/verify",
				OTPVerifyRequest{Phone: "9876543210", Code: "482913"})
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			data := body["data"].(map[string]interface{})
			assert.Equal(t, tt.wantNext, data["next"])
			assert.Equal(t, tt.wantRedirect, data["redirect"])
		})
	}
}

func TestAuthHandlers_InvalidCodeReportsAttempts(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	identity.VerifyOTPFunc = func(ctx context.Context, rawPhone, code string) (*domain.VerifyResult, error) {
		return nil, &domain.InvalidCodeError{AttemptsRemaining: 3}
	}

	_, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/otp/verify",
		OTPVerifyRequest{Phone: "9876543210", Code: "000000"})
	assert.Equal(t, float64(3), body["attempts_remaining"])
}

func TestAuthHandlers_SelectRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"selected", "broker", nil, http.StatusOK, ""},
		{"unknown role", "landlord", nil, http.StatusBadRequest, "unknown_role"},
		{"role not owned", "developer", domain.ErrRoleNotOwned, http.StatusForbidden, "role_not_owned"},
		{"session gone", "broker", domain.ErrSessionNotFound, http.StatusUnauthorized, "session_expired"},
		{"busy", "broker", domain.ErrLockNotAcquired, http.StatusConflict, "busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := mocks.NewMockIdentityService()
			identity.SelectRoleFunc = func(ctx context.Context, sessionID string, role domain.Role) (*domain.Session, error) {
				assert.Equal(t, testSessionID, sessionID)
				if tt.err != nil {
					return nil, tt.err
				}
				s := multiRoleSession()
				require.NoError(t, s.Select(role))
				return s, nil
			}

			w, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/session/role", SelectRoleRequest{Role: tt.role})
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			data := body["data"].(map[string]interface{})
			assert.Equal(t, "broker", data["selected_role"])
			assert.Equal(t, "/broker/dashboard", data["dashboard"])
			assert.Equal(t, false, data["pending_selection"])
		})
	}
}

func TestAuthHandlers_SessionAndSwitch(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	identity.CurrentSessionFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		return multiRoleSession(), nil
	}
	identity.SwitchRoleFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		return nil, domain.ErrStaleResolution
	}
	r := setupRouter(identity)

	w, body := doJSON(t, r, http.MethodGet, "/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, true, data["pending_selection"])
	assert.Len(t, data["roles"], 2)
	assert.NotContains(t, data, "selected_role")

	w, body = doJSON(t, r, http.MethodPost, "/auth/session/switch", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "stale_resolution", body["error"])
}

func TestAuthHandlers_Logout(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	var signedOut string
	identity.SignOutFunc = func(ctx context.Context, sessionID string) error {
		signedOut = sessionID
		return nil
	}

	w, body := doJSON(t, setupRouter(identity), http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testSessionID, signedOut)
	assert.Equal(t, domain.LoginPath, body["data"].(map[string]interface{})["redirect"])
}

func TestAuthHandlers_Authorize(t *testing.T) {
	identity := mocks.NewMockIdentityService()
	var gotRequired []domain.Role
	identity.AuthorizeFunc = func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
		gotRequired = required
		return domain.GuardDecision{State: domain.GuardRoleMismatch, Redirect: "/broker/dashboard"}, nil
	}
	r := setupRouter(identity)

	w, body := doJSON(t, r, http.MethodGet, "/auth/authorize?role=developer&role=admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []domain.Role{domain.RoleDeveloper, domain.RoleAdmin}, gotRequired)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "ROLE_MISMATCH", data["state"])
	assert.Equal(t, "/broker/dashboard", data["redirect"])

	w, _ = doJSON(t, r, http.MethodGet, "/auth/authorize?role=landlord", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
