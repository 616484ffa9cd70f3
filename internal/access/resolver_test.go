package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTenantStore struct {
	tenants  map[string]*Tenant
	failures int
	calls    int
}

func (s *fakeTenantStore) FindBySlug(ctx context.Context, slug string) (*Tenant, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("connection refused")
	}
	tenant, ok := s.tenants[slug]
	if !ok {
		return nil, ErrTenantNotFound
	}
	copied := *tenant
	return &copied, nil
}

type fakeMembershipStore struct {
	memberships map[snowflake.ID][]Membership
	failures    int
	calls       int
}

func (s *fakeMembershipStore) ListForUser(ctx context.Context, userID snowflake.ID) ([]Membership, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("connection refused")
	}
	return s.memberships[userID], nil
}

func acmeTenant() *Tenant {
	return &Tenant{
		ID:             1001,
		Slug:           "acme",
		TeamID:         2001,
		Name:           "Acme Rewards",
		NormalizedName: "acme rewards",
		OwnerUserID:    1,
	}
}

func newTestResolver(tenants *fakeTenantStore, memberships *fakeMembershipStore) *Resolver {
	return NewResolver(zap.NewNop(), tenants, memberships, NewCache(), nil)
}

func TestResolveOwner(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 1, "acme")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resolved.UIRole)
	assert.Equal(t, snowflake.ID(2001), resolved.TeamID)
	assert.Equal(t, snowflake.ID(1001), resolved.TenantID)
	require.NotNil(t, resolved.Membership)
}

func TestResolvePlainMember(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		2: {{TeamID: 2001, UserID: 2, Roles: []string{"member"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 2, "acme")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, resolved.UIRole)
}

func TestResolveNestedTeamShape(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		3: {{Team: &TeamRef{ID: 2001}, UserID: 3, Roles: []string{"admin"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 3, "acme")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resolved.UIRole)
	assert.Equal(t, snowflake.ID(2001), resolved.TeamID)
}

func TestResolveNoMembership(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		4: {{TeamID: 9999, UserID: 4, Roles: []string{"owner"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 4, "acme")
	require.ErrorIs(t, err, ErrNotATeamMember)
	assert.Nil(t, resolved)
}

func TestResolveUnconfirmedMembership(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		5: {{TeamID: 2001, UserID: 5, Roles: []string{"owner"}, Confirmed: false}},
	}}
	resolver := newTestResolver(tenants, memberships)

	_, err := resolver.Resolve(context.Background(), 5, "acme")
	require.ErrorIs(t, err, ErrNotATeamMember)
}

func TestResolveTenantNotFound(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{}}
	memberships := &fakeMembershipStore{}
	resolver := newTestResolver(tenants, memberships)

	_, err := resolver.Resolve(context.Background(), 1, "ghost")
	require.ErrorIs(t, err, ErrTenantNotFound)
	assert.NotErrorIs(t, err, ErrLookupFailed)

	// A definitive miss is never retried.
	assert.Equal(t, 1, tenants.calls)
	// Membership lookup is skipped entirely.
	assert.Equal(t, 0, memberships.calls)
}

func TestResolveEmptySlug(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	resolver := newTestResolver(tenants, &fakeMembershipStore{})

	_, err := resolver.Resolve(context.Background(), 1, "   ")
	require.ErrorIs(t, err, ErrTenantNotFound)
	assert.Equal(t, 0, tenants.calls)
}

func TestResolveSlugNormalization(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 1, "  ACME ")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1001), resolved.TenantID)
}

func TestResolveRetriesTransientTenantFailure(t *testing.T) {
	tenants := &fakeTenantStore{
		tenants:  map[string]*Tenant{"acme": acmeTenant()},
		failures: 1,
	}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	resolved, err := resolver.Resolve(context.Background(), 1, "acme")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, resolved.UIRole)
	assert.Equal(t, 2, tenants.calls)
}

func TestResolveLookupFailedAfterRetry(t *testing.T) {
	tenants := &fakeTenantStore{
		tenants:  map[string]*Tenant{"acme": acmeTenant()},
		failures: 2,
	}
	resolver := newTestResolver(tenants, &fakeMembershipStore{})

	_, err := resolver.Resolve(context.Background(), 1, "acme")
	require.ErrorIs(t, err, ErrLookupFailed)
	assert.NotErrorIs(t, err, ErrTenantNotFound)
	assert.Equal(t, 2, tenants.calls)
}

func TestResolveMembershipLookupFailed(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{failures: 2}
	resolver := newTestResolver(tenants, memberships)

	_, err := resolver.Resolve(context.Background(), 1, "acme")
	require.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, 2, memberships.calls)
}

func TestResolveCachesResult(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	_, err := resolver.Resolve(context.Background(), 1, "acme")
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), 1, "acme")
	require.NoError(t, err)

	assert.Equal(t, 1, memberships.calls)
}

func TestResolveCachesNegativeResult(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{}
	resolver := newTestResolver(tenants, memberships)

	_, err := resolver.Resolve(context.Background(), 7, "acme")
	require.ErrorIs(t, err, ErrNotATeamMember)
	_, err = resolver.Resolve(context.Background(), 7, "acme")
	require.ErrorIs(t, err, ErrNotATeamMember)

	assert.Equal(t, 1, memberships.calls)
}

func TestResolveInvalidateForcesRefetch(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{}
	cache := NewCache()
	resolver := NewResolver(zap.NewNop(), tenants, memberships, cache, nil)

	_, err := resolver.Resolve(context.Background(), 8, "acme")
	require.ErrorIs(t, err, ErrNotATeamMember)

	// Membership granted; the role change must be visible after invalidation.
	memberships.memberships = map[snowflake.ID][]Membership{
		8: {{TeamID: 2001, UserID: 8, Roles: []string{"member"}, Confirmed: true}},
	}
	cache.Invalidate(8, 2001)

	resolved, err := resolver.Resolve(context.Background(), 8, "acme")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, resolved.UIRole)
	assert.Equal(t, 2, memberships.calls)
}

func TestResolveIsolatesCacheEntriesPerUser(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
		2: {{TeamID: 2001, UserID: 2, Roles: []string{"member"}, Confirmed: true}},
	}}
	resolver := newTestResolver(tenants, memberships)

	first, err := resolver.Resolve(context.Background(), 1, "acme")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), 2, "acme")
	require.NoError(t, err)

	assert.Equal(t, RoleAdmin, first.UIRole)
	assert.Equal(t, RoleUser, second.UIRole)
}

func TestRetryOnceRespectsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := retryOnce(ctx, time.Second, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
