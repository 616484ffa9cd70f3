package reward

import (
	"go.uber.org/fx"

	"github.com/loyalops/perkdesk/internal/reward/repository"
	"github.com/loyalops/perkdesk/internal/reward/service"
)

var Module = fx.Module("reward.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
