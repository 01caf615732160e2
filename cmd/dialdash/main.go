package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/voixlabs/dialdash/internal/calllog"
	"github.com/voixlabs/dialdash/internal/config"
	"github.com/voixlabs/dialdash/internal/contact"
	"github.com/voixlabs/dialdash/internal/deviceapi"
	"github.com/voixlabs/dialdash/internal/devicesettings"
	"github.com/voixlabs/dialdash/internal/observability"
	"github.com/voixlabs/dialdash/internal/seed"
	"github.com/voixlabs/dialdash/internal/server"
	"github.com/voixlabs/dialdash/internal/session"
	"github.com/voixlabs/dialdash/internal/store"
	"github.com/voixlabs/dialdash/internal/store/local"
	"github.com/voixlabs/dialdash/internal/store/remote"
	"github.com/voixlabs/dialdash/pkg/db"
	"github.com/voixlabs/dialdash/pkg/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		fx.Provide(newStore),

		// Functional domains
		session.Module,
		contact.Module,
		calllog.Module,
		deviceapi.Module,
		devicesettings.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// newStore selects the record-store backend. Remote talks to an external
// record store over HTTP; local runs an embedded database and owns auth
// itself.
func newStore(cfg config.Config, node *snowflake.Node, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreType {
	case config.StoreRemote:
		return remote.New(cfg.StoreURL, logger), nil
	case config.StoreLocal:
		gdb, err := db.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		st, err := local.New(gdb, node, logger)
		if err != nil {
			return nil, err
		}
		if err := seed.EnsureAdmin(context.Background(), gdb, st, logger); err != nil {
			return nil, fmt.Errorf("seed bootstrap account: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.StoreType)
	}
}
