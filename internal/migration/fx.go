package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/ratelimit"
	"github.com/smallbiznis/lawdirectory/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	GenID  *snowflake.Node
	Locker *ratelimit.Locker `optional:"true"`
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p Params) error {
		log := p.Log.Named("migration")
		if p.Cfg.Bootstrap.RunMigrations {
			if err := Apply(p.DB, p.Cfg.DBType); err != nil {
				return err
			}
			log.Info("schema migrated", zap.String("type", p.Cfg.DBType))
		}

		if !p.Cfg.Bootstrap.SeedDemoData {
			return nil
		}
		return seed.Bootstrap(context.Background(), seed.Params{
			DB:          p.DB,
			Log:         log,
			GenID:       p.GenID,
			Locker:      p.Locker,
			AdminUserID: p.Cfg.Bootstrap.AdminUserID,
		})
	}),
)
