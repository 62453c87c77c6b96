package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessage struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	UserID    string       `json:"userId" gorm:"size:36;not null;index"`
	Message   string       `json:"message" gorm:"type:text;not null"`
	IsUser    bool         `json:"isUser" gorm:"not null"`
	Metadata  *ChatContext `json:"metadata,omitempty" gorm:"type:text"`
	CreatedAt time.Time    `json:"createdAt" gorm:"index"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ChatContext is attached to assistant replies.
type ChatContext struct {
	Recommendations []ProductSummary `json:"recommendations,omitempty"`
	Provider        string           `json:"provider,omitempty"`
}

func (c ChatContext) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *ChatContext) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// ProductSummary is the trimmed product shape embedded in chat replies and carts.
type ProductSummary struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Price         string     `json:"price"`
	StockQuantity int        `json:"stockQuantity"`
	Images        StringList `json:"images"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price.StringFixed(2),
		StockQuantity: p.StockQuantity,
		Images:        p.Images,
	}
}
