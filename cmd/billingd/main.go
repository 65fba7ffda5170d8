package main

import (
	"github.com/quantica-hq/billing/internal/billing"
	"github.com/quantica-hq/billing/internal/clock"
	"github.com/quantica-hq/billing/internal/config"
	"github.com/quantica-hq/billing/internal/observability"
	"github.com/quantica-hq/billing/internal/observability/logger"
	"github.com/quantica-hq/billing/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		fx.Provide(newLoggerConfig),
		observability.Module,
		clock.Module,
		billing.Module,
		server.Module,
	)
	app.Run()
}

func newLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	}
}
