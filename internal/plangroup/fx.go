package plangroup

import (
	"github.com/smallbiznis/lawdirectory/internal/plangroup/repository"
	"github.com/smallbiznis/lawdirectory/internal/plangroup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plangroup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
