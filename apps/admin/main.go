package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/clock"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/migration"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	"github.com/smallbiznis/lawdirectory/internal/server"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Admin owns the schema
		migration.Module,

		fx.Supply(server.RoutesAdmin),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
