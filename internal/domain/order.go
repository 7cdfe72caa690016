package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusUnpaid = "unpaid"
	OrderStatusPaid   = "paid"
)

// Order is immutable once created except for the unpaid -> paid status
// transition driven by the payment callback.
type Order struct {
	ID          int64           `gorm:"primaryKey" json:"id,string"`
	UserID      int64           `gorm:"index" json:"user_id,string"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_amount"`
	Status      string          `gorm:"index;size:16" json:"status"`
	TradeNo     string          `gorm:"index;size:64" json:"-"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Details     []OrderDetail   `gorm:"constraint:OnDelete:CASCADE" json:"details,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderDetail snapshots the product title and unit price at checkout
// time; later catalog edits must never alter order history.
type OrderDetail struct {
	ID           int64           `gorm:"primaryKey" json:"id,string"`
	OrderID      int64           `gorm:"index" json:"order_id,string"`
	ProductID    int64           `json:"product_id,string"`
	ProductTitle string          `gorm:"size:255" json:"product_title"`
	Price        decimal.Decimal `gorm:"type:decimal(18,2)" json:"price"`
	Quantity     int             `json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}
