package shop

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
	"github.com/shopdemo/shopapi/pkg/metrics"
)

// Event topics published after a successful commit.
const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
)

// CheckoutService converts a cart into an order as one atomic unit:
// stock validation, order + snapshot detail insert, conditional stock
// decrement and cart purge either all commit or none do. Correctness
// under concurrent checkouts comes from the storage transaction, not
// from in-process locking.
type CheckoutService struct {
	db  *gorm.DB
	bus EventBus.Bus
}

func NewCheckoutService(db *gorm.DB, bus EventBus.Bus) *CheckoutService {
	return &CheckoutService{db: db, bus: bus}
}

// Checkout places an order for the user's current cart using live
// product prices. It returns the persisted order with status unpaid.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	start := time.Now()
	var order *domain.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart domain.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return errors.Wrap(err, "query cart")
		}

		var items []domain.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id").Find(&items).Error; err != nil {
			return errors.Wrap(err, "query cart items")
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		products, err := lockProducts(tx, items)
		if err != nil {
			return err
		}

		total := decimal.Zero
		details := make([]domain.OrderDetail, 0, len(items))
		for _, item := range items {
			product, found := products[item.ProductID]
			if !found {
				return ErrProductNotFound
			}
			if product.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductTitle: product.Title,
					Available:    product.Stock,
					Requested:    item.Quantity,
				}
			}
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			details = append(details, domain.OrderDetail{
				ID:           common.UUIDint64(),
				ProductID:    product.ID,
				ProductTitle: product.Title,
				Price:        product.Price,
				Quantity:     item.Quantity,
			})
		}

		order = &domain.Order{
			ID:          common.UUIDint64(),
			UserID:      userID,
			TotalAmount: total,
			Status:      domain.OrderStatusUnpaid,
			Details:     details,
		}
		if err := tx.Create(order).Error; err != nil {
			return errors.Wrap(err, "create order")
		}

		// Conditional decrement: the stock >= quantity guard makes the
		// no-oversell invariant hold even without the row locks above.
		for _, item := range items {
			if err := decrementStock(tx, item, products[item.ProductID]); err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return errors.Wrap(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckoutDuration(float64(time.Since(start).Milliseconds()))
	if s.bus != nil {
		s.bus.Publish(TopicOrderCreated, order)
	}
	zap.L().Info("checkout succeeded",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, nil
}

// decrementStock applies the guarded decrement for one line item. When
// the guard rejects the update, the reported availability is re-read:
// the snapshot taken at lock time may already be stale on engines
// where the rows were not locked.
func decrementStock(tx *gorm.DB, item domain.CartItem, product domain.Product) error {
	res := tx.Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
	if res.Error != nil {
		return errors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		available := product.Stock
		var current domain.Product
		if err := tx.Select("stock").First(&current, item.ProductID).Error; err == nil {
			available = current.Stock
		}
		return &InsufficientStockError{
			ProductTitle: product.Title,
			Available:    available,
			Requested:    item.Quantity,
		}
	}
	return nil
}

// lockProducts reads the referenced product rows inside the checkout
// transaction, locked FOR UPDATE in ascending id order so that two
// overlapping checkouts cannot deadlock. sqlite has a single writer
// and rejects the locking clause, so it is applied per dialect.
func lockProducts(tx *gorm.DB, items []domain.CartItem) (map[int64]domain.Product, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	q := tx
	if strings.EqualFold(tx.Name(), "postgres") {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var products []domain.Product
	if err := q.Where("id IN ?", ids).Order("id").Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "lock products")
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}
