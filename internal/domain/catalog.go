package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name" form:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product stock is mutated only by admin edits and by the checkout
// transaction's conditional decrement; it never goes negative.
type Product struct {
	ID          int64           `gorm:"primaryKey" json:"id,string"`
	Title       string          `gorm:"index;size:255" json:"title" form:"title"`
	Description string          `gorm:"size:4000" json:"description" form:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2)" json:"price"`
	ImageUrl    string          `gorm:"size:1024" json:"image_url" form:"image_url"`
	Stock       int             `json:"stock" form:"stock"`
	CategoryID  int64           `gorm:"index" json:"category_id,string" form:"category_id"`
	Category    *Category       `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
