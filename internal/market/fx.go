package market

import (
	"github.com/smallbiznis/lawdirectory/internal/market/repository"
	"github.com/smallbiznis/lawdirectory/internal/market/service"
	"go.uber.org/fx"
)

var Module = fx.Module("market.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
