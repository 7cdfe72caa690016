package shop

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

// CartService owns the per-user pre-purchase cart. The cart is not a
// source of truth for price or stock; both are re-read at checkout.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// CartItemView joins a cart line to the live product attributes shown
// in the cart UI.
type CartItemView struct {
	ID           int64           `json:"id,string"`
	ProductID    int64           `json:"product_id,string"`
	ProductTitle string          `json:"product_title"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	ImageUrl     string          `json:"image_url"`
	Stock        int             `json:"stock"`
}

type CartView struct {
	ID    int64          `json:"id,string"`
	Items []CartItemView `json:"items"`
}

// GetCart returns the user's cart with live product data, or an empty
// cart representation; absence is a valid state, not a failure.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	var cart domain.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CartView{Items: []CartItemView{}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query cart")
	}

	var items []domain.CartItem
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cart.ID).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "query cart items")
	}

	view := &CartView{ID: cart.ID, Items: make([]CartItemView, 0, len(items))}
	for _, item := range items {
		iv := CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			iv.ProductTitle = item.Product.Title
			iv.Price = item.Product.Price
			iv.ImageUrl = item.Product.ImageUrl
			iv.Stock = item.Product.Stock
		}
		view.Items = append(view.Items, iv)
	}
	return view, nil
}

// AddItem creates the user's cart on first use and upserts the line
// item, incrementing the quantity when the product is already present.
// Stock is not checked here; it is validated only at checkout.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	var product domain.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return errors.Wrap(err, "query product")
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	item := domain.CartItem{
		ID:        common.UUIDint64(),
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
		}),
	}).Create(&item).Error
	if err != nil {
		return errors.Wrap(err, "upsert cart item")
	}

	zap.L().Debug("cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", quantity))
	return nil
}

// RemoveItem deletes the item only if it belongs to the caller's cart;
// ownership is re-verified server side on every request.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	sub := s.db.Model(&domain.Cart{}).Select("id").Where("user_id = ?", userID)
	res := s.db.WithContext(ctx).
		Where("id = ? AND cart_id IN (?)", itemID, sub).
		Delete(&domain.CartItem{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// ClearCart removes every item of the user's cart; no-op without one.
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	var cart domain.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "query cart")
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).
		Delete(&domain.CartItem{}).Error; err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (s *CartService) getOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart domain.Cart
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "query cart")
	}

	cart = domain.Cart{ID: common.UUIDint64(), UserID: userID}
	createErr := s.db.WithContext(ctx).Create(&cart).Error
	if createErr == nil {
		return &cart, nil
	}

	// Someone else created the cart concurrently; re-get it.
	if isUniqueViolation(createErr) {
		if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return nil, errors.Wrap(err, "re-query cart")
		}
		return &cart, nil
	}
	return nil, errors.Wrap(createErr, "create cart")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
