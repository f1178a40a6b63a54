package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mergematrix/internal/clock"
	"github.com/smallbiznis/mergematrix/internal/config"
	"github.com/smallbiznis/mergematrix/internal/migration"
	"github.com/smallbiznis/mergematrix/internal/observability"
	"github.com/smallbiznis/mergematrix/internal/server"
	"github.com/smallbiznis/mergematrix/pkg/db"
	"github.com/smallbiznis/mergematrix/pkg/mongodb"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		db.Module,
		mongodb.Module,
		migration.Module,

		// HTTP surface and the domains behind it
		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeID)
}
