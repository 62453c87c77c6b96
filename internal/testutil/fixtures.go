package testutil

import (
	"testing"

	"mechanical_shop/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, FullName: "Test User"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func CreateProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:          name,
		Price:         decimal.NewFromInt(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return product
}

func StockOf(t *testing.T, db *gorm.DB, productID string) int {
	t.Helper()

	var product models.Product
	if err := db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("failed to load product: %v", err)
	}
	return product.StockQuantity
}
