package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/learnsprout/sproutlink/internal/clock"
	"github.com/learnsprout/sproutlink/internal/config"
	"github.com/learnsprout/sproutlink/internal/migration"
	"github.com/learnsprout/sproutlink/internal/observability"
	"github.com/learnsprout/sproutlink/internal/scheduler"
	"github.com/learnsprout/sproutlink/internal/server"
	"github.com/learnsprout/sproutlink/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
