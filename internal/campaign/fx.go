package campaign

import (
	"go.uber.org/fx"

	"github.com/loyalops/perkdesk/internal/campaign/repository"
	"github.com/loyalops/perkdesk/internal/campaign/service"
)

var Module = fx.Module("campaign.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
