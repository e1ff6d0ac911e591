package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/ratelimit"
	"github.com/smallbiznis/lawdirectory/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seedAdminUserID string

type seedParams struct {
	fx.In

	DB     *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	GenID  *snowflake.Node
	Locker *ratelimit.Locker `optional:"true"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo markets, plans and lawyers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), func(p seedParams) error {
			adminUserID := seedAdminUserID
			if adminUserID == "" {
				adminUserID = p.Cfg.Bootstrap.AdminUserID
			}
			return seed.Bootstrap(cmd.Context(), seed.Params{
				DB:          p.DB,
				Log:         p.Log.Named("seed"),
				GenID:       p.GenID,
				Locker:      p.Locker,
				AdminUserID: adminUserID,
			})
		}, ratelimit.Module)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUserID, "admin-user-id", "", "user id granted the super_admin role")
}
