package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxAddressesPerUser caps the address book of a single user.
const MaxAddressesPerUser = 3

type Address struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"userId" gorm:"size:36;not null;index"`
	Label       string    `json:"label" gorm:"size:50"`
	FullName    string    `json:"fullName" gorm:"size:255;not null"`
	Phone       string    `json:"phone" gorm:"size:20;not null"`
	AddressLine string    `json:"addressLine" gorm:"type:text;not null"`
	Ward        string    `json:"ward" gorm:"size:100"`
	District    string    `json:"district" gorm:"size:100"`
	City        string    `json:"city" gorm:"size:100;not null"`
	IsDefault   bool      `json:"isDefault" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Snapshot copies the delivery fields into the value stored on an order.
func (a *Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		FullName:    a.FullName,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		Ward:        a.Ward,
		District:    a.District,
		City:        a.City,
	}
}

// ShippingAddress is the delivery address frozen onto an order at placement time.
type ShippingAddress struct {
	FullName    string `json:"fullName" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	AddressLine string `json:"addressLine" binding:"required"`
	Ward        string `json:"ward"`
	District    string `json:"district"`
	City        string `json:"city" binding:"required"`
}

func (s ShippingAddress) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *ShippingAddress) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func (s ShippingAddress) IsZero() bool {
	return s.FullName == "" && s.Phone == "" && s.AddressLine == "" && s.City == ""
}
