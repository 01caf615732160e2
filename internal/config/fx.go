package config

import "go.uber.org/fx"

// Module provides the environment-derived configuration.
var Module = fx.Provide(Load)
