// Package mongodb opens the document store used when DATABASE_TYPE=mongodb.
package mongodb

import (
	"context"

	"github.com/smallbiznis/mergematrix/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("mongodb",
	fx.Provide(NewDatabase),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// NewDatabase connects to MongoDB. It returns a nil handle unless the document
// store is configured.
func NewDatabase(p Params) (*mongo.Database, error) {
	if !p.Config.UsesMongo() {
		return nil, nil
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(p.Config.MongoURI).
		SetAppName(p.Config.AppName).
		SetTimeout(p.Config.StoreTimeout))
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		OnStop: func(ctx context.Context) error {
			p.Log.Info("disconnecting mongodb client")
			return client.Disconnect(ctx)
		},
	})

	p.Log.Info("mongodb configured", zap.String("database", p.Config.MongoDatabase))
	return client.Database(p.Config.MongoDatabase), nil
}
