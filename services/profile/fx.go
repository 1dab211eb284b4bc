package profile

import (
	"go.uber.org/fx"
)

var Module = fx.Module("profile.store",
	fx.Provide(NewStore),
)
