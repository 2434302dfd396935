package model

import (
	"time"

	"gorm.io/gorm"
)

// Sale status values
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// Payment status values. Overdue is never stored; it is derived at read time
// from the due date, see EffectivePaymentStatus.
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// Approval status values for customer-placed orders
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
)

// Sale represents an order, scoped to a store
type Sale struct {
	ID             uint           `json:"id" gorm:"primarykey"`
	StoreID        uint           `json:"store_id" gorm:"index;not null"`
	CustomerName   string         `json:"customer_name" gorm:"type:varchar(255)"`
	CustomerPhone  string         `json:"customer_phone" gorm:"type:varchar(50)"`
	Items          []SaleItem     `json:"items" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Subtotal       float64        `json:"subtotal" gorm:"not null"`
	Tax            float64        `json:"tax" gorm:"not null;default:0"`
	Discount       float64        `json:"discount" gorm:"not null;default:0"`
	FinalAmount    float64        `json:"final_amount" gorm:"not null"`
	AmountPaid     float64        `json:"amount_paid" gorm:"not null;default:0"`
	AmountDue      float64        `json:"amount_due" gorm:"not null"`
	Status         string         `json:"status" gorm:"type:varchar(20);index;default:'active'"`
	PaymentStatus  string         `json:"payment_status" gorm:"type:varchar(20);index;default:'pending'"`
	ApprovalStatus string         `json:"approval_status" gorm:"type:varchar(20);default:'approved'"`
	DueDate        *time.Time     `json:"due_date"`
	Notes          string         `json:"notes" gorm:"type:text"`
	Cashier        string         `json:"cashier" gorm:"type:varchar(255)"`
	CreatedBy      uint           `json:"created_by"`
	Payments       []Payment      `json:"payments" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	History        []Modification `json:"modification_history" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// SaleItem is a denormalized order line. Name and unit price are snapshotted
// at order time and never re-read from the live product.
type SaleItem struct {
	ID          uint    `json:"id" gorm:"primarykey"`
	SaleID      uint    `json:"sale_id" gorm:"index;not null"`
	ProductID   uint    `json:"product_id" gorm:"not null"`
	ProductName string  `json:"product_name" gorm:"type:varchar(255);not null"`
	Quantity    int     `json:"quantity" gorm:"not null"`
	UnitPrice   float64 `json:"unit_price" gorm:"not null"`
	LineTotal   float64 `json:"line_total" gorm:"not null"`
}

// Payment is one entry of the append-only payment sequence of a sale
type Payment struct {
	ID      uint      `json:"id" gorm:"primarykey"`
	SaleID  uint      `json:"sale_id" gorm:"index;not null"`
	Amount  float64   `json:"amount" gorm:"not null"`
	Method  string    `json:"method" gorm:"type:varchar(50)"`
	Date    time.Time `json:"date"`
	Notes   string    `json:"notes" gorm:"type:text"`
	Cashier string    `json:"cashier" gorm:"type:varchar(255)"`
}

// Modification is one entry of the append-only change log of a sale
type Modification struct {
	ID      uint      `json:"id" gorm:"primarykey"`
	SaleID  uint      `json:"sale_id" gorm:"index;not null"`
	Date    time.Time `json:"date"`
	Cashier string    `json:"cashier" gorm:"type:varchar(255)"`
	Detail  string    `json:"detail" gorm:"type:text"`
}

// RecomputeTotals recalculates subtotal, final amount and amount due from the
// current item lines, tax and discount.
func (s *Sale) RecomputeTotals() {
	subtotal := 0.0
	for i := range s.Items {
		s.Items[i].LineTotal = float64(s.Items[i].Quantity) * s.Items[i].UnitPrice
		subtotal += s.Items[i].LineTotal
	}
	s.Subtotal = subtotal
	s.FinalAmount = s.Subtotal + s.Tax - s.Discount
	s.AmountDue = s.FinalAmount - s.AmountPaid
}

// EffectivePaymentStatus derives the read-time payment status, reporting
// overdue when the due date has passed and the sale is not fully paid.
func (s *Sale) EffectivePaymentStatus(now time.Time) string {
	if s.PaymentStatus != PaymentPaid && s.DueDate != nil && s.DueDate.Before(now) {
		return PaymentOverdue
	}
	return s.PaymentStatus
}
