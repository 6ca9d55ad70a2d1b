package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/handlers"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/middleware"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/mocks"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/services"
)

const testPhone = "+919876543210"

type routerFixture struct {
	router   *gin.Engine
	identity *mocks.MockIdentityService
	sessions *mocks.MockSessionRepository
	enforcer *mocks.MockCasbinEnforcer
}

func newRouterFixture(t *testing.T, ratePerMinute int) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identity := mocks.NewMockIdentityService()
	tokens := mocks.NewMockTokenService()
	tokens.ValidateSessionTokenFunc = func(token string) (*domain.TokenClaims, error) {
		if !strings.HasPrefix(token, "token_") {
			return nil, domain.ErrTokenInvalid
		}
		return &domain.TokenClaims{SessionID: strings.TrimPrefix(token, "token_"), Phone: testPhone}, nil
	}
	sessions := mocks.NewMockSessionRepository()
	enforcer := mocks.NewMockCasbinEnforcer(
		[]string{"role_admin", "/admin/*", "(GET|POST|DELETE)"},
		[]string{"role_broker", "/api/*", "(GET|POST)"},
	)

	router := BuildRouter(
		RouterConfig{AllowOrigins: []string{"https://milkat.example"}, OTPRatePerMinute: ratePerMinute},
		handlers.NewAuthHandlers(identity, nil),
		handlers.NewPolicyHandlers(services.NewPolicyServiceWithEnforcer(enforcer)),
		middleware.NewAuthMW(tokens, sessions),
		middleware.NewRoleGuard(identity, enforcer, nil),
		nil,
	)
	return &routerFixture{router: router, identity: identity, sessions: sessions, enforcer: enforcer}
}

// withSession makes the session repository and identity service serve a
// session holding roles with selected chosen.
func (f *routerFixture) withSession(selected domain.Role, roles ...domain.Role) {
	build := func() *domain.Session {
		profiles := make([]domain.RoleProfile, 0, len(roles))
		for _, r := range roles {
			profiles = append(profiles, domain.RoleProfile{Role: r, ProfileID: string(r) + "-1", Phone: testPhone})
		}
		now := time.Now()
		s := domain.NewSession("sess-1", testPhone, profiles, now, now.Add(time.Hour))
		if selected != "" {
			_ = s.Select(selected)
		}
		return s
	}
	f.sessions.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		if sessionID != "sess-1" {
			return nil, domain.ErrSessionNotFound
		}
		return build(), nil
	}
	f.identity.CurrentSessionFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		return f.sessions.FindByID(ctx, sessionID)
	}
	f.identity.AuthorizeFunc = func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
		s, err := f.sessions.FindByID(ctx, sessionID)
		if err != nil {
			s = nil
		}
		return domain.Decide(domain.GuardInputFor(s, false, false, required)), nil
	}
}

func (f *routerFixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t, 0)
	w := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SessionRequiresToken(t *testing.T) {
	f := newRouterFixture(t, 0)
	f.withSession(domain.RoleBroker, domain.RoleBroker)

	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{"no header", "", "", http.StatusUnauthorized},
		{"not bearer", "", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "garbage", "", http.StatusUnauthorized},
		{"unknown session", "token_sess-2", "", http.StatusUnauthorized},
		{"live session", "token_sess-1", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			switch {
			case tt.header != "":
				req.Header.Set("Authorization", tt.header)
			case tt.token != "":
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRouter_SessionPhoneMismatch(t *testing.T) {
	f := newRouterFixture(t, 0)
	f.sessions.FindByIDFunc = func(ctx context.Context, sessionID string) (*domain.Session, error) {
		return &domain.Session{ID: sessionID, Phone: "+919999999999"}, nil
	}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/auth/session", "token_sess-1").Code)
}

func TestRouter_RoleGuard(t *testing.T) {
	tests := []struct {
		name       string
		selected   domain.Role
		roles      []domain.Role
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "pending selection",
			roles:      []domain.Role{domain.RoleBroker, domain.RoleSocietyOwner},
			path:       "/api/me/profile",
			wantStatus: http.StatusForbidden,
			wantBody:   `"role_selection_required"`,
		},
		{
			name:       "selected broker reads profile",
			selected:   domain.RoleBroker,
			roles:      []domain.Role{domain.RoleBroker, domain.RoleSocietyOwner},
			path:       "/api/me/profile",
			wantStatus: http.StatusOK,
			wantBody:   `"broker-1"`,
		},
		{
			name:       "casbin denies role without policy",
			roles:      []domain.Role{domain.RoleSocietyMember},
			path:       "/api/me/profile",
			wantStatus: http.StatusForbidden,
			wantBody:   `"Access Denied"`,
		},
		{
			name:       "broker on admin route",
			selected:   domain.RoleBroker,
			roles:      []domain.Role{domain.RoleBroker, domain.RoleAdmin},
			path:       "/admin/policies",
			wantStatus: http.StatusForbidden,
			wantBody:   `"/broker/dashboard"`,
		},
		{
			name:       "admin lists policies",
			selected:   domain.RoleAdmin,
			roles:      []domain.Role{domain.RoleBroker, domain.RoleAdmin},
			path:       "/admin/policies",
			wantStatus: http.StatusOK,
			wantBody:   `"role_broker"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t, 0)
			f.withSession(tt.selected, tt.roles...)

			w := f.do(http.MethodGet, tt.path, "token_sess-1")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRouter_GuardLoadingAndBackend(t *testing.T) {
	f := newRouterFixture(t, 0)
	f.withSession(domain.RoleBroker, domain.RoleBroker)

	f.identity.AuthorizeFunc = func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
		return domain.GuardDecision{State: domain.GuardLoading}, nil
	}
	w := f.do(http.MethodGet, "/api/me/profile", "token_sess-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	f.identity.AuthorizeFunc = func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
		return domain.GuardDecision{}, domain.ErrBackendUnavailable
	}
	w = f.do(http.MethodGet, "/api/me/profile", "token_sess-1")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "backend_unavailable")
}

func TestRouter_AuthorizeWithoutToken(t *testing.T) {
	f := newRouterFixture(t, 0)
	var gotSession string
	f.identity.AuthorizeFunc = func(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
		gotSession = sessionID
		return domain.Decide(domain.GuardInputFor(nil, false, false, required)), nil
	}

	w := f.do(http.MethodGet, "/auth/authorize?role=broker", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, gotSession)
	assert.Contains(t, w.Body.String(), `"UNAUTHENTICATED"`)
}

func TestRouter_OTPRateLimit(t *testing.T) {
	f := newRouterFixture(t, 10)
	f.identity.ResendAvailableInFunc = func(ctx context.Context, rawPhone string) (time.Duration, error) {
		return 0, nil
	}

	first := f.do(http.MethodGet, "/auth/otp/resend?phone=9876543210", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := f.do(http.MethodGet, "/auth/otp/resend?phone=9876543210", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "rate_limited")

	// Routes outside /auth/otp are not throttled.
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "").Code)
}

func TestRouter_CORS(t *testing.T) {
	f := newRouterFixture(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/auth/otp/request", nil)
	req.Header.Set("Origin", "https://milkat.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "https://milkat.example", w.Header().Get("Access-Control-Allow-Origin"))
}
