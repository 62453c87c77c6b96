package migrations

import (
	"fmt"

	"mechanical_shop/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Review{},
		&models.Address{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.ChatMessage{},
		&models.WebhookEvent{},
	}
}

// RunMigrations creates or alters tables to match the models.
func RunMigrations(db *gorm.DB) error {
	log.Info("Running database migrations")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// at most one default address per user
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_single_default ON addresses (user_id) WHERE is_default`).Error; err != nil {
		return fmt.Errorf("failed to create address default index: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}

// Reset drops every table and migrates from scratch. Development only.
func Reset(db *gorm.DB) error {
	log.Warn("Dropping existing tables")

	all := Models()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	return RunMigrations(db)
}
