package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID                 string          `json:"id" gorm:"primaryKey;size:36"`
	OrderNumber        string          `json:"orderNumber" gorm:"uniqueIndex;size:16;not null"`
	UserID             string          `json:"userId" gorm:"size:36;not null;index"`
	User               *User           `json:"user,omitempty"`
	TotalAmount        decimal.Decimal `json:"totalAmount" gorm:"type:decimal(14,2);not null"`
	Status             OrderStatus     `json:"status" gorm:"size:20;not null;default:'pending';index"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus" gorm:"size:20;not null;default:'pending'"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod" gorm:"size:30;not null;default:'cod'"`
	ShippingAddress    ShippingAddress `json:"shippingAddress" gorm:"type:text;not null"`
	Notes              string          `json:"notes" gorm:"type:text"`
	PaymentProof       string          `json:"paymentProof,omitempty" gorm:"size:500"`
	SepayTransactionID string          `json:"sepayTransactionId,omitempty" gorm:"size:100;index"`
	OrderItems         []OrderItem     `json:"orderItems" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = PaymentCOD
	}
	return nil
}

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentSepay        PaymentMethod = "sepay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentBankTransfer, PaymentSepay:
		return true
	}
	return false
}
