package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loyalops/perkdesk/internal/access"
	authdomain "github.com/loyalops/perkdesk/internal/auth/domain"
	"github.com/loyalops/perkdesk/internal/auth/session"
	"github.com/loyalops/perkdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTenantStore struct {
	tenants map[string]*access.Tenant
}

func (s *stubTenantStore) FindBySlug(ctx context.Context, slug string) (*access.Tenant, error) {
	_ = ctx
	tenant, ok := s.tenants[slug]
	if !ok {
		return nil, access.ErrTenantNotFound
	}
	return tenant, nil
}

type stubMembershipStore struct {
	memberships map[snowflake.ID][]access.Membership
}

func (s *stubMembershipStore) ListForUser(ctx context.Context, userID snowflake.ID) ([]access.Membership, error) {
	_ = ctx
	return s.memberships[userID], nil
}

type stubAuthService struct {
	sessions map[string]*authdomain.User
}

func (s *stubAuthService) CreateUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	_ = ctx
	_ = req
	return nil, authdomain.ErrUserExists
}

func (s *stubAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	_ = ctx
	_ = req
	return nil, authdomain.ErrInvalidCredentials
}

func (s *stubAuthService) Logout(ctx context.Context, rawToken string) error {
	_ = ctx
	_ = rawToken
	return nil
}

func (s *stubAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	_ = ctx
	user, ok := s.sessions[rawToken]
	if !ok {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{
		ID:        user.ID + 1,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID string, newPassword string) error {
	_ = ctx
	_ = userID
	_ = newPassword
	return nil
}

func (s *stubAuthService) RequestEmailVerification(ctx context.Context, userID snowflake.ID) error {
	_ = ctx
	_ = userID
	return nil
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, rawToken string) (*authdomain.User, error) {
	_ = ctx
	_ = rawToken
	return nil, authdomain.ErrVerificationNotFound
}

func (s *stubAuthService) GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error) {
	_ = ctx
	for _, user := range s.sessions {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, authdomain.ErrUserNotFound
}

type gateFixture struct {
	server      *Server
	memberships map[snowflake.ID][]access.Membership
	authsvc     *stubAuthService
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tenants := &stubTenantStore{
		tenants: map[string]*access.Tenant{
			"acme": {ID: 1001, Slug: "acme", TeamID: 2001, Name: "Acme"},
		},
	}
	memberships := map[snowflake.ID][]access.Membership{}
	members := &stubMembershipStore{memberships: memberships}

	resolver := access.NewResolver(zap.NewNop(), tenants, members, access.NewCache(), nil)
	authsvc := &stubAuthService{sessions: map[string]*authdomain.User{}}

	srv := &Server{
		engine:   gin.New(),
		cfg:      config.Config{Environment: "test"},
		log:      zap.NewNop(),
		authsvc:  authsvc,
		sessions: session.NewManager(config.Config{}),
		gate:     access.NewGate(resolver),
	}

	srv.engine.Use(ErrorHandlingMiddleware())
	srv.engine.GET("/t/:slug/admin/overview", srv.TenantAccess(access.AreaAdmin), func(c *gin.Context) {
		resolved := currentAccess(c)
		c.JSON(http.StatusOK, gin.H{"ui_role": resolved.UIRole})
	})
	srv.engine.GET("/t/:slug/user/overview", srv.TenantAccess(access.AreaUser), func(c *gin.Context) {
		resolved := currentAccess(c)
		c.JSON(http.StatusOK, gin.H{"ui_role": resolved.UIRole})
	})
	srv.engine.GET("/auth/me", srv.WebAuthRequired(), srv.Me)

	return &gateFixture{server: srv, memberships: memberships, authsvc: authsvc}
}

func (f *gateFixture) addSession(token string, userID snowflake.ID, verified bool) {
	f.authsvc.sessions[token] = &authdomain.User{
		ID:            userID,
		Email:         "user@example.com",
		EmailVerified: verified,
	}
}

func (f *gateFixture) addMembership(userID snowflake.ID, roles []string) {
	f.memberships[userID] = append(f.memberships[userID], access.Membership{
		TeamID:    2001,
		UserID:    userID,
		Roles:     roles,
		Confirmed: true,
	})
}

func (f *gateFixture) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

func TestTenantAccessUnauthenticatedRedirectsToLogin(t *testing.T) {
	f := newGateFixture(t)

	rec := f.get(t, "/t/acme/admin/overview", "")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestTenantAccessUnverifiedRedirectsToVerifyEmail(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-unverified", 7, false)
	f.addMembership(7, []string{"owner"})

	rec := f.get(t, "/t/acme/admin/overview", "tok-unverified")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/verify-email", rec.Header().Get("Location"))
}

func TestTenantAccessOwnerSeesAdminArea(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-owner", 7, true)
	f.addMembership(7, []string{"owner"})

	rec := f.get(t, "/t/acme/admin/overview", "tok-owner")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ui_role":"admin"`)
}

func TestTenantAccessMemberRedirectedFromAdmin(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-member", 8, true)
	f.addMembership(8, []string{"member"})

	rec := f.get(t, "/t/acme/admin/overview", "tok-member")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/t/acme/user/overview", rec.Header().Get("Location"))
}

func TestTenantAccessMemberAllowedInUserArea(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-member", 8, true)
	f.addMembership(8, []string{"member"})

	rec := f.get(t, "/t/acme/user/overview", "tok-member")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ui_role":"user"`)
}

func TestTenantAccessNoMembershipRedirectsToChooser(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-stranger", 9, true)

	rec := f.get(t, "/t/acme/user/overview", "tok-stranger")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/choose-workspace", rec.Header().Get("Location"))
}

func TestTenantAccessUnknownSlugIsGenericDeny(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-member", 8, true)
	f.addMembership(8, []string{"member"})

	// A member of a real tenant and a stranger get the same redirect on an
	// unknown slug; slug existence never leaks.
	for _, token := range []string{"tok-member", ""} {
		rec := f.get(t, "/t/ghost/user/overview", token)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	}
}

func TestTenantAccessInvalidSessionTreatedAsAnonymous(t *testing.T) {
	f := newGateFixture(t)

	rec := f.get(t, "/t/acme/admin/overview", "tok-unknown")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestWebAuthRequiredRejectsAnonymous(t *testing.T) {
	f := newGateFixture(t)

	rec := f.get(t, "/auth/me", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebAuthRequiredReturnsCurrentUser(t *testing.T) {
	f := newGateFixture(t)
	f.addSession("tok-owner", 7, true)

	rec := f.get(t, "/auth/me", "tok-owner")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"user@example.com"`)
}
