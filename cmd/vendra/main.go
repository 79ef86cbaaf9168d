package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/config"
	"github.com/storekit/vendra/internal/feeconfig"
	"github.com/storekit/vendra/internal/ledger"
	"github.com/storekit/vendra/internal/logger"
	"github.com/storekit/vendra/internal/migration"
	obsmetrics "github.com/storekit/vendra/internal/observability/metrics"
	"github.com/storekit/vendra/internal/order"
	"github.com/storekit/vendra/internal/ordernumber"
	"github.com/storekit/vendra/internal/platformbilling"
	"github.com/storekit/vendra/internal/scheduler"
	"github.com/storekit/vendra/internal/server"
	"github.com/storekit/vendra/internal/webhookguard"
	"github.com/storekit/vendra/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		obsmetrics.Module,
		migration.Module,

		// Financial core
		feeconfig.Module,
		ordernumber.Module,
		ledger.Module,
		order.Module,
		platformbilling.Module,
		webhookguard.Module,
		scheduler.Module,

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
