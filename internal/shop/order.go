package shop

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
)

// OrderQueryService is the read-oriented side of the order subsystem.
// It shares the transactional store with the checkout write path but
// never mutates it.
type OrderQueryService struct {
	db *gorm.DB
}

func NewOrderQueryService(db *gorm.DB) *OrderQueryService {
	return &OrderQueryService{db: db}
}

// OrderSummary is the lightweight listing form without line details.
type OrderSummary struct {
	ID          int64           `json:"id,string"`
	UserID      int64           `json:"user_id,string"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderDetailView struct {
	ID           int64           `json:"id,string"`
	ProductID    int64           `json:"product_id,string"`
	ProductTitle string          `json:"product_title"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	ImageUrl     string          `json:"image_url"`
}

type OrderView struct {
	ID          int64             `json:"id,string"`
	UserID      int64             `json:"user_id,string"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Status      string            `json:"status"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Details     []OrderDetailView `json:"details"`

	// Purchaser identity, only populated on the privileged path.
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// AdminOrderSummary joins purchaser identity for administrative lists.
type AdminOrderSummary struct {
	ID          int64           `json:"id,string"`
	UserID      int64           `json:"user_id,string"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UserEmail   string          `json:"user_email"`
	UserName    string          `json:"user_name"`
}

// ListMyOrders returns the user's orders newest first, summary form.
func (s *OrderQueryService) ListMyOrders(ctx context.Context, userID int64) ([]OrderSummary, error) {
	var orders []domain.Order
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	out := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderSummary{
			ID:          o.ID,
			UserID:      o.UserID,
			TotalAmount: o.TotalAmount,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
		})
	}
	return out, nil
}

// GetOrderDetail returns the full order only if owned by the caller.
// A foreign order is indistinguishable from a nonexistent one.
func (s *OrderQueryService) GetOrderDetail(ctx context.Context, orderID, userID int64) (*OrderView, error) {
	return s.getOrder(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id = ? AND user_id = ?", orderID, userID)
	}, false)
}

// AdminGetOrderDetail is the privileged variant without the ownership
// filter; it includes the purchaser's identity for display.
func (s *OrderQueryService) AdminGetOrderDetail(ctx context.Context, orderID int64) (*OrderView, error) {
	return s.getOrder(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("id = ?", orderID)
	}, true)
}

func (s *OrderQueryService) getOrder(ctx context.Context, scope func(*gorm.DB) *gorm.DB, withUser bool) (*OrderView, error) {
	var order domain.Order
	err := scope(s.db.WithContext(ctx)).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}

	var details []domain.OrderDetail
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("id").
		Find(&details).Error; err != nil {
		return nil, errors.Wrap(err, "query order details")
	}

	view := &OrderView{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		PaidAt:      order.PaidAt,
		CreatedAt:   order.CreatedAt,
		Details:     make([]OrderDetailView, 0, len(details)),
	}

	images := s.productImages(ctx, details)
	for _, d := range details {
		view.Details = append(view.Details, OrderDetailView{
			ID:           d.ID,
			ProductID:    d.ProductID,
			ProductTitle: d.ProductTitle,
			Price:        d.Price,
			Quantity:     d.Quantity,
			ImageUrl:     images[d.ProductID],
		})
	}

	if withUser {
		var user domain.User
		if err := s.db.WithContext(ctx).First(&user, order.UserID).Error; err == nil {
			view.UserEmail = user.Email
			view.UserName = user.FullName
		}
	}
	return view, nil
}

// productImages resolves current catalog images for display; a deleted
// product simply yields an empty url, never an error. Title and price
// always come from the snapshot rows.
func (s *OrderQueryService) productImages(ctx context.Context, details []domain.OrderDetail) map[int64]string {
	ids := make([]int64, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ProductID)
	}
	images := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return images
	}
	var products []domain.Product
	if err := s.db.WithContext(ctx).Select("id", "image_url").
		Where("id IN ?", ids).Find(&products).Error; err != nil {
		return images
	}
	for _, p := range products {
		images[p.ID] = p.ImageUrl
	}
	return images
}

// AdminListOrders returns every order newest first, joined with the
// purchaser identity, paginated.
func (s *OrderQueryService) AdminListOrders(ctx context.Context, page, pageSize int) ([]AdminOrderSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Order{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	var rows []AdminOrderSummary
	err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Select("orders.id, orders.user_id, orders.total_amount, orders.status, orders.created_at, users.email AS user_email, users.full_name AS user_name").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC, orders.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "query orders")
	}
	return rows, total, nil
}

// ListUnpaidBefore returns unpaid orders created before the cutoff;
// used by the gateway status sync job.
func (s *OrderQueryService) ListUnpaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.OrderStatusUnpaid, cutoff).
		Order("created_at").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "query unpaid orders")
	}
	return orders, nil
}
