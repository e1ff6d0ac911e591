package effectiveplan

import (
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("effectiveplan.service",
	fx.Provide(service.New),
)
