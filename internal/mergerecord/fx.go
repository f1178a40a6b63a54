package mergerecord

import (
	"github.com/smallbiznis/mergematrix/internal/mergerecord/repository"
	"github.com/smallbiznis/mergematrix/internal/mergerecord/service"
	"go.uber.org/fx"
)

var Module = fx.Module("mergerecord.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
