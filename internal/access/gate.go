package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Area is the privilege level a route subtree requires.
type Area int

const (
	// AreaUser is any tenant-scoped route; membership is required.
	AreaUser Area = iota
	// AreaAdmin additionally requires the admin UI role.
	AreaAdmin
)

// State is the per-request gate state. Computed, never persisted.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateUnverified      State = "unverified"
	StateNoTenantContext State = "no_tenant_context"
	StateNotATeamMember  State = "not_a_team_member"
	StateMemberNonAdmin  State = "member_non_admin"
	StateMemberAdmin     State = "member_admin"
)

// Identity is the authenticated principal, or nil when unauthenticated.
// The session layer distinguishes "no identity" from "backend unreachable";
// only the former reaches the gate as nil.
type Identity struct {
	UserID        snowflake.ID
	EmailVerified bool
}

// Decision is the gate's terminal outcome: exactly one of render
// (Allow=true) or a single redirect. No multi-hop chains.
type Decision struct {
	State      State
	Allow      bool
	RedirectTo string
	Access     *ResolvedAccess
	Err        error
}

// Gate applies the route policy state machine on top of the resolver.
type Gate struct {
	resolver *Resolver
}

func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Decide gates one request to a tenant-scoped route. Every failure path
// ends in a redirect; tenant content is never rendered under uncertain
// authorization.
func (g *Gate) Decide(ctx context.Context, identity *Identity, slug string, area Area) Decision {
	if identity == nil || identity.UserID == 0 {
		return Decision{
			State:      StateUnauthenticated,
			RedirectTo: "/login",
			Err:        ErrNotAuthenticated,
		}
	}

	if !identity.EmailVerified {
		return Decision{
			State:      StateUnverified,
			RedirectTo: "/verify-email",
			Err:        ErrNotVerified,
		}
	}

	resolved, err := g.resolver.Resolve(ctx, identity.UserID, slug)
	if err != nil {
		switch {
		case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrLookupFailed):
			// Generic deny: never leak whether the slug exists.
			return Decision{
				State:      StateNoTenantContext,
				RedirectTo: "/login",
				Err:        err,
			}
		case errors.Is(err, ErrNotATeamMember):
			return Decision{
				State:      StateNotATeamMember,
				RedirectTo: "/choose-workspace",
				Err:        err,
			}
		default:
			return Decision{
				State:      StateNoTenantContext,
				RedirectTo: "/login",
				Err:        err,
			}
		}
	}

	if area == AreaAdmin && resolved.UIRole != RoleAdmin {
		return Decision{
			State:      StateMemberNonAdmin,
			RedirectTo: fmt.Sprintf("/t/%s/user/overview", cleanSlug(slug)),
			Access:     resolved,
			Err:        ErrInsufficientRole,
		}
	}

	state := StateMemberNonAdmin
	if resolved.UIRole == RoleAdmin {
		state = StateMemberAdmin
	}
	return Decision{
		State:  state,
		Allow:  true,
		Access: resolved,
	}
}

func cleanSlug(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
