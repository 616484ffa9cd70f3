package access

import (
	tenantdomain "github.com/loyalops/perkdesk/internal/tenant/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("access",
	fx.Provide(NewCache),
	fx.Provide(NewResolver),
	fx.Provide(NewGate),
	fx.Provide(func(c *Cache) tenantdomain.CacheInvalidator { return c }),
)
