package engine

import (
	"go.uber.org/fx"
)

var Module = fx.Module("engine.service",
	fx.Provide(New),
)
