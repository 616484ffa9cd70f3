// Package access resolves a tenant slug and an authenticated user into a
// coarse UI role, and gates tenant-scoped routes on the result.
package access

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// UIRole is the coarse role used for navigation and route gating.
type UIRole string

const (
	RoleAdmin UIRole = "admin"
	RoleUser  UIRole = "user"
)

// Tenant is the resolver's read-only view of a workspace.
type Tenant struct {
	ID             snowflake.ID `json:"id"`
	Slug           string       `json:"slug"`
	TeamID         snowflake.ID `json:"team_id"`
	Name           string       `json:"name"`
	NormalizedName string       `json:"normalized_name"`
	OwnerUserID    snowflake.ID `json:"owner_user_id"`
}

// TeamRef is the nested-object form of a membership's team reference.
type TeamRef struct {
	ID snowflake.ID `json:"id"`
}

// Membership is a user's association with a team. Legacy identity-provider
// exports express the team reference under three shapes: a flat team_id, a
// nested team object, or an alternate flat group_id. ResolveTeamID folds all
// three into one identifier; never compare the raw fields directly.
type Membership struct {
	TeamID    snowflake.ID `json:"team_id,omitempty"`
	Team      *TeamRef     `json:"team,omitempty"`
	GroupID   snowflake.ID `json:"group_id,omitempty"`
	UserID    snowflake.ID `json:"user_id"`
	Roles     []string     `json:"roles"`
	Confirmed bool         `json:"confirmed"`
	JoinedAt  time.Time    `json:"joined_at"`
}

// ResolveTeamID returns the membership's team identifier regardless of which
// shape carried it. Zero means no team reference was present.
func (m Membership) ResolveTeamID() snowflake.ID {
	if m.TeamID != 0 {
		return m.TeamID
	}
	if m.Team != nil && m.Team.ID != 0 {
		return m.Team.ID
	}
	return m.GroupID
}

// UnmarshalJSON tolerates string-encoded identifiers in any of the three
// team-reference shapes.
func (m *Membership) UnmarshalJSON(data []byte) error {
	var raw struct {
		TeamID  json.RawMessage `json:"team_id"`
		Team    json.RawMessage `json:"team"`
		GroupID json.RawMessage `json:"group_id"`

		UserID    json.RawMessage `json:"user_id"`
		Roles     []string        `json:"roles"`
		Confirmed bool            `json:"confirmed"`
		JoinedAt  time.Time       `json:"joined_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Roles = raw.Roles
	m.Confirmed = raw.Confirmed
	m.JoinedAt = raw.JoinedAt

	var err error
	if m.UserID, err = parseFlexibleID(raw.UserID); err != nil {
		return err
	}
	if m.TeamID, err = parseFlexibleID(raw.TeamID); err != nil {
		return err
	}
	if m.GroupID, err = parseFlexibleID(raw.GroupID); err != nil {
		return err
	}

	m.Team = nil
	if len(raw.Team) > 0 && string(raw.Team) != "null" {
		var team struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw.Team, &team); err != nil {
			return err
		}
		id, err := parseFlexibleID(team.ID)
		if err != nil {
			return err
		}
		if id != 0 {
			m.Team = &TeamRef{ID: id}
		}
	}

	return nil
}

func parseFlexibleID(raw json.RawMessage) (snowflake.ID, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return snowflake.ParseString(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return snowflake.ID(n), nil
}

// ResolvedAccess is the per-request authorization result. It is derived, not
// persisted, and never outlives the cache TTL.
type ResolvedAccess struct {
	UIRole     UIRole
	TeamID     snowflake.ID
	TenantID   snowflake.ID
	Membership *Membership
}

// RoleFor reduces a membership's role list to the coarse UI role. Admin iff
// the roles contain a case-insensitive owner or admin. The whole slice is
// consulted, not just the first entry. Deterministic: no hidden state.
func RoleFor(membership *Membership) UIRole {
	if membership == nil {
		return RoleUser
	}
	for _, role := range membership.Roles {
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "owner", "admin":
			return RoleAdmin
		}
	}
	return RoleUser
}
