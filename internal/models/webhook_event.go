package models

import "time"

// WebhookEvent records processed payment notifications so replays are ignored.
type WebhookEvent struct {
	DeliveryKey string    `json:"deliveryKey" gorm:"primaryKey;size:200"`
	OrderID     string    `json:"orderId" gorm:"size:36;index"`
	Status      string    `json:"status" gorm:"size:30"`
	ProcessedAt time.Time `json:"processedAt"`
}
