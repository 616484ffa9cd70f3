package auth

import (
	"github.com/loyalops/perkdesk/internal/auth/repository"
	"github.com/loyalops/perkdesk/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
