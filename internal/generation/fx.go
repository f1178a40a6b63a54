package generation

import (
	"github.com/smallbiznis/mergematrix/internal/generation/repository"
	"github.com/smallbiznis/mergematrix/internal/generation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
