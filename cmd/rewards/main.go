package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"engagement-controlplane/internal/config"
	"engagement-controlplane/internal/httpapi"
	"engagement-controlplane/internal/server"
	asynqfx "engagement-controlplane/pkg/asynq"
	"engagement-controlplane/pkg/db"
	"engagement-controlplane/pkg/gen"
	"engagement-controlplane/pkg/health"
	"engagement-controlplane/pkg/logger"
	"engagement-controlplane/pkg/otelcol"
	"engagement-controlplane/pkg/profiling"
	"engagement-controlplane/pkg/redis"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/engine"
	"engagement-controlplane/services/member"
	"engagement-controlplane/services/notification"
	"engagement-controlplane/services/profile"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		health.Module,
		otelcol.Module,
		profiling.Module,
		asynqfx.Client,
		asynqfx.Server,
		catalog.Module,
		member.Module,
		profile.Module,
		engine.Module,
		notification.Module,
		httpapi.Module,
		server.Module,
		fx.Invoke(autoMigrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func autoMigrate(gdb *gorm.DB) error {
	models := append(profile.Models(),
		&member.Member{},
		&notification.Notification{},
	)
	return gdb.AutoMigrate(models...)
}
