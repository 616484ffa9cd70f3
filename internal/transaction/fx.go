package transaction

import (
	"go.uber.org/fx"

	"github.com/loyalops/perkdesk/internal/transaction/repository"
	"github.com/loyalops/perkdesk/internal/transaction/service"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
