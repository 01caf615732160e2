package calllog

import "go.uber.org/fx"

var Module = fx.Module("calllog.tracker",
	fx.Provide(NewTracker),
)
