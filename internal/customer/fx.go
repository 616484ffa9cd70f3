package customer

import (
	"go.uber.org/fx"

	"github.com/loyalops/perkdesk/internal/customer/repository"
	"github.com/loyalops/perkdesk/internal/customer/service"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
