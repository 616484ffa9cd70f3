package repository

import "go.uber.org/fx"

var Module = fx.Module("access.stores",
	fx.Provide(NewTenantStore),
	fx.Provide(NewMembershipStore),
)
