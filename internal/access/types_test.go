package access

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleFor(t *testing.T) {
	cases := []struct {
		name  string
		roles []string
		want  UIRole
	}{
		{name: "owner", roles: []string{"owner"}, want: RoleAdmin},
		{name: "admin", roles: []string{"admin"}, want: RoleAdmin},
		{name: "mixed case owner", roles: []string{"OWNER"}, want: RoleAdmin},
		{name: "mixed case admin", roles: []string{"Admin"}, want: RoleAdmin},
		{name: "admin not first", roles: []string{"member", "billing", "admin"}, want: RoleAdmin},
		{name: "member", roles: []string{"member"}, want: RoleUser},
		{name: "user", roles: []string{"user"}, want: RoleUser},
		{name: "empty roles", roles: []string{}, want: RoleUser},
		{name: "nil roles", roles: nil, want: RoleUser},
		{name: "whitespace padding", roles: []string{"  owner  "}, want: RoleAdmin},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			membership := &Membership{Roles: tc.roles}
			assert.Equal(t, tc.want, RoleFor(membership))
		})
	}
}

func TestRoleForNilMembership(t *testing.T) {
	assert.Equal(t, RoleUser, RoleFor(nil))
}

func TestRoleForIdempotent(t *testing.T) {
	membership := &Membership{Roles: []string{"member", "Admin"}}
	first := RoleFor(membership)
	second := RoleFor(membership)
	assert.Equal(t, first, second)
	assert.Equal(t, RoleAdmin, first)
}

func TestResolveTeamID(t *testing.T) {
	target := snowflake.ID(101)

	flat := Membership{TeamID: target}
	assert.Equal(t, target, flat.ResolveTeamID())

	nested := Membership{Team: &TeamRef{ID: target}}
	assert.Equal(t, target, nested.ResolveTeamID())

	alternate := Membership{GroupID: target}
	assert.Equal(t, target, alternate.ResolveTeamID())

	none := Membership{}
	assert.Equal(t, snowflake.ID(0), none.ResolveTeamID())

	// Flat field wins when several shapes are present.
	both := Membership{TeamID: target, Team: &TeamRef{ID: 999}}
	assert.Equal(t, target, both.ResolveTeamID())
}

func TestMembershipUnmarshalShapes(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{name: "flat team_id", json: `{"team_id":"101","user_id":"1","roles":["owner"],"confirmed":true}`},
		{name: "nested team object", json: `{"team":{"id":"101"},"user_id":"1","roles":["owner"],"confirmed":true}`},
		{name: "alternate group_id", json: `{"group_id":"101","user_id":"1","roles":["owner"],"confirmed":true}`},
		{name: "numeric ids", json: `{"team_id":101,"user_id":1,"roles":["owner"],"confirmed":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var membership Membership
			require.NoError(t, json.Unmarshal([]byte(tc.json), &membership))
			assert.Equal(t, snowflake.ID(101), membership.ResolveTeamID())
			assert.Equal(t, snowflake.ID(1), membership.UserID)
			assert.True(t, membership.Confirmed)
			assert.Equal(t, RoleAdmin, RoleFor(&membership))
		})
	}
}

func TestMembershipUnmarshalNullTeam(t *testing.T) {
	var membership Membership
	require.NoError(t, json.Unmarshal([]byte(`{"team":null,"user_id":"1","roles":[]}`), &membership))
	assert.Nil(t, membership.Team)
	assert.Equal(t, snowflake.ID(0), membership.ResolveTeamID())
}
