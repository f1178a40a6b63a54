package migration

import (
	"context"

	"github.com/smallbiznis/mergematrix/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	DB        *gorm.DB        `optional:"true"`
	Mongo     *mongo.Database `optional:"true"`
}

// Run migrates whichever store is configured once it is reachable.
func Run(p Params) {
	log := p.Log.Named("migration")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			switch {
			case p.Mongo != nil:
				log.Info("ensuring mongodb indexes")
				return EnsureIndexes(ctx, p.Mongo)
			case p.DB == nil:
				return nil
			case p.Config.DBType == config.DBTypePostgres:
				sqlDB, err := p.DB.DB()
				if err != nil {
					return err
				}
				version, err := RunMigrations(sqlDB, log)
				if err != nil {
					return err
				}
				log.Info("postgres schema up to date", zap.Uint("version", version))
				return nil
			default:
				log.Info("auto migrating schema", zap.String("type", p.Config.DBType))
				return AutoMigrate(ctx, p.DB)
			}
		},
	})
}
