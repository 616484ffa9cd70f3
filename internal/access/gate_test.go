package access

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGate(tenants *fakeTenantStore, memberships *fakeMembershipStore) *Gate {
	return NewGate(newTestResolver(tenants, memberships))
}

func acmeGate(memberships map[snowflake.ID][]Membership) *Gate {
	return newTestGate(
		&fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}},
		&fakeMembershipStore{memberships: memberships},
	)
}

func verified(userID snowflake.ID) *Identity {
	return &Identity{UserID: userID, EmailVerified: true}
}

func TestDecideOwnerRendersAdmin(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	})

	decision := gate.Decide(context.Background(), verified(1), "acme", AreaAdmin)
	assert.True(t, decision.Allow)
	assert.Equal(t, StateMemberAdmin, decision.State)
	assert.Empty(t, decision.RedirectTo)
	require.NotNil(t, decision.Access)
	assert.Equal(t, RoleAdmin, decision.Access.UIRole)
}

func TestDecideMemberRedirectedFromAdmin(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		2: {{TeamID: 2001, UserID: 2, Roles: []string{"member"}, Confirmed: true}},
	})

	decision := gate.Decide(context.Background(), verified(2), "acme", AreaAdmin)
	assert.False(t, decision.Allow)
	assert.Equal(t, StateMemberNonAdmin, decision.State)
	assert.Equal(t, "/t/acme/user/overview", decision.RedirectTo)
	assert.ErrorIs(t, decision.Err, ErrInsufficientRole)
}

func TestDecideMemberAllowedInUserArea(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		2: {{TeamID: 2001, UserID: 2, Roles: []string{"member"}, Confirmed: true}},
	})

	decision := gate.Decide(context.Background(), verified(2), "acme", AreaUser)
	assert.True(t, decision.Allow)
	assert.Equal(t, StateMemberNonAdmin, decision.State)
}

func TestDecideNoMembershipGoesToChooser(t *testing.T) {
	gate := acmeGate(nil)

	decision := gate.Decide(context.Background(), verified(3), "acme", AreaUser)
	assert.False(t, decision.Allow)
	assert.Equal(t, StateNotATeamMember, decision.State)
	assert.Equal(t, "/choose-workspace", decision.RedirectTo)
}

func TestDecideUnknownSlug(t *testing.T) {
	gate := newTestGate(
		&fakeTenantStore{tenants: map[string]*Tenant{}},
		&fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
			1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
		}},
	)

	// Same generic deny whether or not the caller is a member anywhere.
	for _, userID := range []snowflake.ID{1, 42} {
		decision := gate.Decide(context.Background(), verified(userID), "ghost", AreaUser)
		assert.False(t, decision.Allow)
		assert.Equal(t, StateNoTenantContext, decision.State)
		assert.Equal(t, "/login", decision.RedirectTo)
	}
}

func TestDecideUnauthenticated(t *testing.T) {
	gate := acmeGate(nil)

	for _, identity := range []*Identity{nil, {}} {
		decision := gate.Decide(context.Background(), identity, "acme", AreaUser)
		assert.False(t, decision.Allow)
		assert.Equal(t, StateUnauthenticated, decision.State)
		assert.Equal(t, "/login", decision.RedirectTo)
		assert.ErrorIs(t, decision.Err, ErrNotAuthenticated)
	}
}

func TestDecideUnverifiedEmail(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
	})

	decision := gate.Decide(context.Background(), &Identity{UserID: 1}, "acme", AreaAdmin)
	assert.False(t, decision.Allow)
	assert.Equal(t, StateUnverified, decision.State)
	assert.Equal(t, "/verify-email", decision.RedirectTo)
	assert.ErrorIs(t, decision.Err, ErrNotVerified)
}

func TestDecideLookupFailureFailsClosed(t *testing.T) {
	gate := newTestGate(
		&fakeTenantStore{
			tenants:  map[string]*Tenant{"acme": acmeTenant()},
			failures: 2,
		},
		&fakeMembershipStore{},
	)

	decision := gate.Decide(context.Background(), verified(1), "acme", AreaUser)
	assert.False(t, decision.Allow)
	assert.Equal(t, StateNoTenantContext, decision.State)
	assert.Equal(t, "/login", decision.RedirectTo)
	assert.ErrorIs(t, decision.Err, ErrLookupFailed)
}

func TestDecideSingleOutcome(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		1: {{TeamID: 2001, UserID: 1, Roles: []string{"owner"}, Confirmed: true}},
		2: {{TeamID: 2001, UserID: 2, Roles: []string{"member"}, Confirmed: true}},
	})

	cases := []struct {
		name     string
		identity *Identity
		slug     string
		area     Area
	}{
		{name: "admin render", identity: verified(1), slug: "acme", area: AreaAdmin},
		{name: "member redirect", identity: verified(2), slug: "acme", area: AreaAdmin},
		{name: "no membership", identity: verified(3), slug: "acme", area: AreaUser},
		{name: "unknown slug", identity: verified(1), slug: "ghost", area: AreaUser},
		{name: "unauthenticated", identity: nil, slug: "acme", area: AreaUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := gate.Decide(context.Background(), tc.identity, tc.slug, tc.area)
			if decision.Allow {
				assert.Empty(t, decision.RedirectTo)
				assert.NoError(t, decision.Err)
			} else {
				assert.NotEmpty(t, decision.RedirectTo)
			}
		})
	}
}

func TestDecideNestedTeamShape(t *testing.T) {
	gate := acmeGate(map[snowflake.ID][]Membership{
		5: {{Team: &TeamRef{ID: 2001}, UserID: 5, Roles: []string{"owner"}, Confirmed: true}},
	})

	decision := gate.Decide(context.Background(), verified(5), "acme", AreaAdmin)
	assert.True(t, decision.Allow)
	assert.Equal(t, StateMemberAdmin, decision.State)
}

func TestDecideRoleChangeVisibleAfterInvalidate(t *testing.T) {
	tenants := &fakeTenantStore{tenants: map[string]*Tenant{"acme": acmeTenant()}}
	memberships := &fakeMembershipStore{memberships: map[snowflake.ID][]Membership{
		6: {{TeamID: 2001, UserID: 6, Roles: []string{"admin"}, Confirmed: true}},
	}}
	cache := NewCache()
	gate := NewGate(NewResolver(zap.NewNop(), tenants, memberships, cache, nil))

	decision := gate.Decide(context.Background(), verified(6), "acme", AreaAdmin)
	assert.True(t, decision.Allow)

	memberships.memberships[6] = []Membership{
		{TeamID: 2001, UserID: 6, Roles: []string{"member"}, Confirmed: true},
	}
	cache.Invalidate(6, 2001)

	decision = gate.Decide(context.Background(), verified(6), "acme", AreaAdmin)
	assert.False(t, decision.Allow)
	assert.Equal(t, "/t/acme/user/overview", decision.RedirectTo)
}
