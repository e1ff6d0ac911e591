package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/clock"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/migration"
	"github.com/smallbiznis/lawdirectory/internal/observability"
	"github.com/smallbiznis/lawdirectory/internal/server"
	"github.com/smallbiznis/lawdirectory/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var rootCmd = &cobra.Command{
	Use:           "lawdirectory",
	Short:         "Lawyer directory market resolution and subscription plan service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			infrastructure(),
			migration.Module,
			server.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, resolveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// infrastructure is the config, logging, id and store wiring every command shares.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// runOnce builds an app for a one-shot command, runs invoke and shuts down.
func runOnce(ctx context.Context, invoke interface{}, opts ...fx.Option) error {
	options := append([]fx.Option{infrastructure(), fx.NopLogger}, opts...)
	options = append(options, fx.Invoke(invoke))

	app := fx.New(options...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	return app.Stop(stopCtx)
}
