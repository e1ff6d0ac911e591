package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/clock"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	"github.com/smallbiznis/lawdirectory/internal/server"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"go.uber.org/fx"
)

// The public API serves lookups and lawyer self-service. Schema and seed
// are left to the admin binary or the CLI.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Supply(server.RoutesPublic),
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
