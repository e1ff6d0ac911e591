package coverage

import (
	"github.com/smallbiznis/lawdirectory/internal/coverage/repository"
	"github.com/smallbiznis/lawdirectory/internal/coverage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coverage.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.NewFallbackSource),
	fx.Provide(repository.NewSubscriptionTypeStore),
	fx.Provide(service.New),
)
