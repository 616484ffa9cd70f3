package access

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/internal/cache"
)

const defaultResolvedTTL = 30 * time.Second

// Cache stores resolved access decisions keyed by (userID, teamID) for a
// short TTL. Membership writes must call Invalidate so a stale admin bit
// never outlives a role change by more than the TTL.
type Cache struct {
	entries cache.Cache[string, ResolvedAccess]
	ttl     time.Duration
}

func NewCache() *Cache {
	return &Cache{
		entries: cache.NewTTLCache[string, ResolvedAccess](),
		ttl:     defaultResolvedTTL,
	}
}

func (c *Cache) Get(userID, teamID snowflake.ID) (ResolvedAccess, bool) {
	return c.entries.Get(accessKey(userID, teamID))
}

func (c *Cache) Set(userID, teamID snowflake.ID, resolved ResolvedAccess) {
	c.entries.Set(accessKey(userID, teamID), resolved, c.ttl)
}

// Invalidate drops the cached decision for one (user, team) pair.
func (c *Cache) Invalidate(userID, teamID snowflake.ID) {
	c.entries.Delete(accessKey(userID, teamID))
}

func accessKey(userID, teamID snowflake.ID) string {
	return fmt.Sprintf("%d|%d", userID, teamID)
}
