package repository

import (
	"errors"

	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB        `optional:"true"`
	Mongo *mongo.Database `optional:"true"`
}

// Provide selects the backend whose handle was opened.
func Provide(p Params) (generationdomain.Repository, error) {
	switch {
	case p.Mongo != nil:
		return NewMongo(p.Mongo), nil
	case p.DB != nil:
		return NewSQL(p.DB), nil
	default:
		return nil, errors.New("generation: no store configured")
	}
}
