package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/loyalops/perkdesk/internal/config"
	"github.com/loyalops/perkdesk/internal/migration"
	"github.com/loyalops/perkdesk/internal/observability"
	"github.com/loyalops/perkdesk/internal/server"
	"github.com/loyalops/perkdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
