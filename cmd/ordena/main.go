package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordena/internal/admin"
	"github.com/smallbiznis/ordena/internal/adminflow"
	"github.com/smallbiznis/ordena/internal/business"
	"github.com/smallbiznis/ordena/internal/catalogsync"
	"github.com/smallbiznis/ordena/internal/clock"
	"github.com/smallbiznis/ordena/internal/config"
	"github.com/smallbiznis/ordena/internal/customer"
	"github.com/smallbiznis/ordena/internal/customerflow"
	"github.com/smallbiznis/ordena/internal/dispatcher"
	"github.com/smallbiznis/ordena/internal/extraction"
	"github.com/smallbiznis/ordena/internal/messenger"
	"github.com/smallbiznis/ordena/internal/migration"
	"github.com/smallbiznis/ordena/internal/observability"
	"github.com/smallbiznis/ordena/internal/order"
	"github.com/smallbiznis/ordena/internal/product"
	"github.com/smallbiznis/ordena/internal/ratelimit"
	"github.com/smallbiznis/ordena/internal/server"
	"github.com/smallbiznis/ordena/internal/subscription"
	"github.com/smallbiznis/ordena/internal/tenant"
	"github.com/smallbiznis/ordena/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(newSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		migration.Module,

		// Domains
		tenant.Module,
		business.Module,
		admin.Module,
		customer.Module,
		product.Module,
		order.Module,
		subscription.Module,

		// Conversation pipeline
		extraction.Module,
		messenger.Module,
		catalogsync.Module,
		adminflow.Module,
		customerflow.Module,
		dispatcher.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}

func newSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("snowflake node: %v", err)
	}
	return node
}
