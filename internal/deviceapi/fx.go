package deviceapi

import "go.uber.org/fx"

var Module = fx.Module("deviceapi.gateway",
	fx.Provide(NewClient),
)
