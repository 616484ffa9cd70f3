package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	defaultLookupTimeout = 2 * time.Second

	// Membership lookup is a full-list scan; the backend has no filtered
	// query. Lists beyond this size are still scanned but logged.
	largeMembershipList = 100
)

// Resolver maps (user, slug) to a ResolvedAccess. It performs at most two
// sequential store round-trips per request, each bounded by a timeout and
// retried once on transient failure before failing closed.
type Resolver struct {
	log         *zap.Logger
	tenants     TenantStore
	memberships MembershipStore
	cache       *Cache
	metrics     *metrics.Metrics
	timeout     time.Duration
}

func NewResolver(
	log *zap.Logger,
	tenants TenantStore,
	memberships MembershipStore,
	cache *Cache,
	m *metrics.Metrics,
) *Resolver {
	return &Resolver{
		log:         log.Named("access.resolver"),
		tenants:     tenants,
		memberships: memberships,
		cache:       cache,
		metrics:     m,
		timeout:     defaultLookupTimeout,
	}
}

// ResolveTenant maps a slug to a tenant. ErrTenantNotFound is an ordinary
// miss; ErrLookupFailed means the store could not answer.
func (r *Resolver) ResolveTenant(ctx context.Context, rawSlug string) (*Tenant, error) {
	// Slugs are generated lowercase; lowercase the input defensively.
	slug := strings.ToLower(strings.TrimSpace(rawSlug))
	if slug == "" {
		return nil, ErrTenantNotFound
	}

	tenant, err := retryOnce(ctx, r.timeout, func(ctx context.Context) (*Tenant, error) {
		return r.tenants.FindBySlug(ctx, slug)
	})
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		// Operational failure, not ordinary denial.
		r.log.Error("tenant lookup failed",
			zap.String("slug", slug),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return tenant, nil
}

// Resolve computes the caller's access to the tenant behind slug. On success
// the result carries the coarse UI role; a user with no membership in the
// tenant's team gets ErrNotATeamMember. Results are cached per
// (user, team) for a short TTL.
func (r *Resolver) Resolve(ctx context.Context, userID snowflake.ID, rawSlug string) (*ResolvedAccess, error) {
	tenant, err := r.ResolveTenant(ctx, rawSlug)
	if err != nil {
		r.record(ctx, outcomeFor(err), false)
		return nil, err
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(userID, tenant.TeamID); ok {
			if cached.Membership == nil {
				r.record(ctx, "not_a_team_member", true)
				return nil, ErrNotATeamMember
			}
			r.record(ctx, "resolved", true)
			result := cached
			return &result, nil
		}
	}

	memberships, err := retryOnce(ctx, r.timeout, func(ctx context.Context) ([]Membership, error) {
		return r.memberships.ListForUser(ctx, userID)
	})
	if err != nil {
		r.log.Error("membership lookup failed",
			zap.String("user_id", userID.String()),
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		r.record(ctx, "lookup_failed", false)
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	if len(memberships) > largeMembershipList {
		r.log.Warn("unexpectedly large membership list",
			zap.String("user_id", userID.String()),
			zap.Int("count", len(memberships)),
		)
	}

	membership := findMembership(memberships, tenant.TeamID)
	if membership == nil {
		if r.cache != nil {
			r.cache.Set(userID, tenant.TeamID, ResolvedAccess{
				UIRole:   RoleUser,
				TeamID:   tenant.TeamID,
				TenantID: tenant.ID,
			})
		}
		r.record(ctx, "not_a_team_member", false)
		return nil, ErrNotATeamMember
	}

	resolved := ResolvedAccess{
		UIRole:     RoleFor(membership),
		TeamID:     tenant.TeamID,
		TenantID:   tenant.ID,
		Membership: membership,
	}
	if r.cache != nil {
		r.cache.Set(userID, tenant.TeamID, resolved)
	}
	r.record(ctx, "resolved", false)

	result := resolved
	return &result, nil
}

// findMembership scans the user's memberships for the target team.
// Unconfirmed memberships never grant access.
func findMembership(memberships []Membership, teamID snowflake.ID) *Membership {
	for i := range memberships {
		if !memberships[i].Confirmed {
			continue
		}
		if memberships[i].ResolveTeamID() == teamID {
			return &memberships[i]
		}
	}
	return nil
}

// retryOnce runs fn with a per-attempt timeout, retrying a single time on
// transient failure. ErrTenantNotFound is a definitive answer, not a
// failure, and is never retried.
func retryOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrTenantNotFound) {
			return zero, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return zero, lastErr
}

func (r *Resolver) record(ctx context.Context, outcome string, cacheHit bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordAccessResolution(ctx, outcome, cacheHit)
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, ErrLookupFailed):
		return "lookup_failed"
	default:
		return "error"
	}
}
