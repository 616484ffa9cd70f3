package access

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// TenantStore resolves slugs to tenants. Implementations must return
// ErrTenantNotFound for an ordinary miss and ErrLookupFailed (wrapped is
// fine) when the backing store is unreachable; the two are never conflated.
type TenantStore interface {
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// MembershipStore lists a user's memberships across all teams. The backend
// offers no filtered membership-by-team query, so the resolver scans the
// full list. Fetch failures surface as errors, never as an empty list.
type MembershipStore interface {
	ListForUser(ctx context.Context, userID snowflake.ID) ([]Membership, error)
}
