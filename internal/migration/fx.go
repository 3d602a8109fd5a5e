package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run applies the versioned postgres schema, or AutoMigrate for the other
// dialects when DATABASE_AUTO_MIGRATE is set.
func Run(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if conn.Dialector.Name() == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		log.Info("applying postgres migrations")
		return RunMigrations(sqlDB)
	}
	if !cfg.DBAutoMigrate {
		return nil
	}
	log.Info("auto-migrating schema", zap.String("dialect", conn.Dialector.Name()))
	return AutoMigrate(conn)
}
