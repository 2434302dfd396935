package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents the product master data.
//
// The three quantity fields move together: Quantity is physical stock after
// confirmed orders, ReservedQuantity is held by unconfirmed carts, and at rest
// AvailableQuantity + ReservedQuantity == Quantity. These columns may only be
// written through the stock ledger primitives, never assigned directly.
type Product struct {
	ID                uint           `json:"id" gorm:"primarykey"`
	StoreID           uint           `json:"store_id" gorm:"index;not null"`
	Name              string         `json:"name" gorm:"type:varchar(255);not null"`
	Description       string         `json:"description" gorm:"type:text"`
	SKU               string         `json:"sku" gorm:"type:varchar(100);index"`
	Price             float64        `json:"price" gorm:"not null"`
	Category          string         `json:"category" gorm:"type:varchar(100)"`
	ImageURL          string         `json:"image_url" gorm:"type:varchar(512)"`
	Quantity          int            `json:"quantity" gorm:"not null;default:0"`
	ReservedQuantity  int            `json:"reserved_quantity" gorm:"not null;default:0"`
	AvailableQuantity int            `json:"available_quantity" gorm:"not null;default:0"`
	IsActive          bool           `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
