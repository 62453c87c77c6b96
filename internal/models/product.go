package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Name        string     `json:"name" gorm:"size:255;not null"`
	Description string     `json:"description" gorm:"type:text"`
	ParentID    *string    `json:"parentId" gorm:"size:36;index"`
	Children    []Category `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Product struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	Name           string          `json:"name" gorm:"size:255;not null;index"`
	Description    string          `json:"description" gorm:"type:text"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(14,2);not null"`
	StockQuantity  int             `json:"stockQuantity" gorm:"not null;default:0"`
	IsActive       bool            `json:"isActive" gorm:"not null;default:true;index"`
	CategoryID     *string         `json:"categoryId" gorm:"size:36;index"`
	Category       *Category       `json:"category,omitempty"`
	Images         StringList      `json:"images" gorm:"type:text"`
	Specifications JSONObject      `json:"specifications" gorm:"type:text"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Review is written by the storefront; this service only reads it.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	ProductID string    `json:"productId" gorm:"size:36;not null;index"`
	UserID    string    `json:"userId" gorm:"size:36;not null;index"`
	User      *User     `json:"user,omitempty"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
