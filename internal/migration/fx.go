package migration

import (
	"github.com/learnsprout/sproutlink/internal/config"
	profiledomain "github.com/learnsprout/sproutlink/internal/profile/domain"
	tokendomain "github.com/learnsprout/sproutlink/internal/token/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			// The migrate driver is postgres-only; other dialects are for
			// local development and tests where AutoMigrate is enough.
			log.Info("falling back to auto migration", zap.String("db_type", cfg.DBType))
			return conn.AutoMigrate(
				&tokendomain.RegistrationToken{},
				&profiledomain.Profile{},
				&profiledomain.Purchase{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
