package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/digiunlocks/soccer-club-sub006/internal/audit"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	"github.com/digiunlocks/soccer-club-sub006/internal/financeintegration"
	"github.com/digiunlocks/soccer-club-sub006/internal/financereport"
	"github.com/digiunlocks/soccer-club-sub006/internal/ledger"
	"github.com/digiunlocks/soccer-club-sub006/internal/lock"
	"github.com/digiunlocks/soccer-club-sub006/internal/migration"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability"
	"github.com/digiunlocks/soccer-club-sub006/internal/payment"
	"github.com/digiunlocks/soccer-club-sub006/internal/reconcile"
	"github.com/digiunlocks/soccer-club-sub006/internal/server"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,

		// Functional Domains
		audit.Module,
		payment.Module,
		ledger.Module,
		financeintegration.Module,
		financereport.Module,
		reconcile.Module,

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
