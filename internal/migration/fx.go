package migration

import (
	"github.com/loyalops/perkdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// Embedded migrations target the postgres driver. Other dialects
		// (sqlite in tests, mysql) manage schema out of band.
		if cfg.DBType != "postgres" {
			log.Info("skipping embedded migrations", zap.String("dialect", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
