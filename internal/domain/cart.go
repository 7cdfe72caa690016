package domain

import "time"

// Cart is created lazily on first add; one active cart per user.
type Cart struct {
	ID        int64      `gorm:"primaryKey" json:"id,string"`
	UserID    int64      `gorm:"uniqueIndex" json:"user_id,string"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem holds at most one row per (cart, product); adding an already
// present product increments the quantity instead.
type CartItem struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	CartID    int64     `gorm:"uniqueIndex:idx_cart_product" json:"cart_id,string"`
	ProductID int64     `gorm:"uniqueIndex:idx_cart_product" json:"product_id,string"`
	Quantity  int       `json:"quantity"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
