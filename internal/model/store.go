package model

import "time"

// Store represents a point-of-sale location with its public shop settings
type Store struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Currency     string    `json:"currency" gorm:"type:varchar(10);default:'USD'"`
	Address      string    `json:"address" gorm:"type:text"`
	OpeningHour  string    `json:"opening_hour" gorm:"type:varchar(10)"`
	ClosingHour  string    `json:"closing_hour" gorm:"type:varchar(10)"`
	LogoURL      string    `json:"logo_url" gorm:"type:varchar(512)"`
	PaymentQRURL string    `json:"payment_qr_url" gorm:"type:varchar(512)"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
