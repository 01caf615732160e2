package devicesettings

import "go.uber.org/fx"

var Module = fx.Module("devicesettings.service",
	fx.Provide(NewService),
)
