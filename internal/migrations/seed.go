package migrations

import (
	"fmt"

	"mechanical_shop/internal/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@mechanicalshop.local"
	defaultAdminPassword = "admin123"
)

type seedProduct struct {
	name        string
	description string
	price       int64
	stock       int
	specs       models.JSONObject
}

var seedCatalog = map[string][]seedProduct{
	"Power Tools": {
		{"Cordless Drill 18V", "Brushless cordless drill with two batteries", 1850000, 25, models.JSONObject{"voltage": "18V", "chuck": "13mm"}},
		{"Angle Grinder 900W", "100mm angle grinder for cutting and polishing", 950000, 40, models.JSONObject{"power": "900W", "disc": "100mm"}},
		{"Impact Wrench 1/2\"", "High torque impact wrench for automotive work", 2450000, 12, models.JSONObject{"torque": "450Nm"}},
	},
	"Hand Tools": {
		{"Combination Wrench Set", "12 piece chrome vanadium wrench set, 8-19mm", 420000, 60, models.JSONObject{"pieces": 12}},
		{"Socket Set 46pcs", "1/4\" drive socket set with ratchet", 385000, 35, models.JSONObject{"pieces": 46, "drive": "1/4\""}},
		{"Claw Hammer", "Fiberglass handle claw hammer, 16oz", 150000, 80, models.JSONObject{"weight": "16oz"}},
	},
	"Measuring": {
		{"Digital Caliper 150mm", "Stainless steel digital vernier caliper", 320000, 30, models.JSONObject{"range": "0-150mm", "resolution": "0.01mm"}},
		{"Tape Measure 5m", "Self locking tape measure", 85000, 120, models.JSONObject{"length": "5m"}},
	},
}

// Seed creates the admin account and a starter catalog when they are missing.
func Seed(db *gorm.DB) error {
	log.Info("Creating default data")

	if err := seedAdmin(db); err != nil {
		return err
	}

	var categories int64
	if err := db.Model(&models.Category{}).Count(&categories).Error; err != nil {
		return err
	}
	if categories > 0 {
		log.Info("Catalog already seeded")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for categoryName, products := range seedCatalog {
			category := &models.Category{Name: categoryName}
			if err := tx.Create(category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", categoryName, err)
			}

			for _, p := range products {
				product := &models.Product{
					Name:           p.name,
					Description:    p.description,
					Price:          decimal.NewFromInt(p.price),
					StockQuantity:  p.stock,
					IsActive:       true,
					CategoryID:     &category.ID,
					Images:         models.StringList{},
					Specifications: p.specs,
				}
				if err := tx.Create(product).Error; err != nil {
					return fmt.Errorf("failed to create product %s: %w", p.name, err)
				}
			}
		}

		log.WithField("categories", len(seedCatalog)).Info("Catalog seeded")
		return nil
	})
}

func seedAdmin(db *gorm.DB) error {
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", defaultAdminEmail).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Info("Admin user already exists")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:        defaultAdminEmail,
		PasswordHash: string(hash),
		FullName:     "Shop Administrator",
		Role:         models.RoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.WithField("email", defaultAdminEmail).Info("Admin user created")
	return nil
}
