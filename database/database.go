package database

import (
	"winzone/config"
	"winzone/logger"
	"winzone/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres pool and runs AutoMigrate when DB_AUTO_MIGRATE
// is set.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Log.Error("❌ Failed to connect to database", zap.Error(err))
		return nil, err
	}

	logger.Log.Info("✅ Connected to database", zap.String("host", cfg.Host), zap.String("name", cfg.Name))

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the draw, ticket and retailer tables.
func Migrate(db *gorm.DB) error {
	logger.Log.Info("🟡 Starting auto-migration...")

	if err := db.AutoMigrate(
		&models.Retailer{},
		&models.Draw{},
		&models.Ticket{},
		&models.RetailerTransaction{},
	); err != nil {
		logger.Log.Error("❌ Failed to auto-migrate database", zap.Error(err))
		return err
	}

	logger.Log.Info("✅ Auto migration completed")
	return nil
}
