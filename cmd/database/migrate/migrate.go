package migration

import (
	"fmt"

	"kyokki-backend/entities"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";").Error; err != nil {
		return fmt.Errorf("create uuid-ossp extension: %w", err)
	}

	models := []struct {
		name  string
		model any
	}{
		{"category", &entities.Category{}},
		{"product", &entities.Product{}},
		{"receipt", &entities.Receipt{}},
		{"inventory item", &entities.InventoryItem{}},
		{"consumption log", &entities.ConsumptionLog{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
	}

	log.Infow("database migration complete")
	return nil
}
