package contact

import "go.uber.org/fx"

var Module = fx.Module("contact.resolver",
	fx.Provide(NewResolver),
)
