package tenant

import (
	"github.com/loyalops/perkdesk/internal/tenant/repository"
	"github.com/loyalops/perkdesk/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
