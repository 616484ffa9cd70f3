package tier

import (
	"go.uber.org/fx"

	"github.com/loyalops/perkdesk/internal/tier/repository"
	"github.com/loyalops/perkdesk/internal/tier/service"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
