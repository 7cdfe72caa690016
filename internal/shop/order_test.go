package shop

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

func seedOrder(t *testing.T, db *gorm.DB, userID int64, total string, createdAt time.Time) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:          common.UUIDint64(),
		UserID:      userID,
		TotalAmount: decimal.RequireFromString(total),
		Status:      domain.OrderStatusUnpaid,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestListMyOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderQueryService(db)
	userID := common.UUIDint64()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedOrder(t, db, userID, "10.00", base)
	middle := seedOrder(t, db, userID, "20.00", base.Add(time.Hour))
	newest := seedOrder(t, db, userID, "30.00", base.Add(2*time.Hour))
	seedOrder(t, db, common.UUIDint64(), "99.00", base.Add(3*time.Hour))

	rows, err := svc.ListMyOrders(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, middle.ID, rows[1].ID)
	assert.Equal(t, oldest.ID, rows[2].ID)
}

func TestGetOrderDetailMasksForeignOrders(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderQueryService(db)
	owner := common.UUIDint64()
	stranger := common.UUIDint64()

	order := seedOrder(t, db, owner, "10.00", time.Now())

	// A foreign order and a missing order yield the same error.
	_, foreignErr := svc.GetOrderDetail(context.Background(), order.ID, stranger)
	_, missingErr := svc.GetOrderDetail(context.Background(), common.UUIDint64(), stranger)
	require.ErrorIs(t, foreignErr, ErrOrderNotFound)
	require.ErrorIs(t, missingErr, ErrOrderNotFound)

	view, err := svc.GetOrderDetail(context.Background(), order.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, order.ID, view.ID)
	assert.Empty(t, view.UserEmail)
}

func TestGetOrderDetailToleratesDeletedProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderQueryService(db)
	userID := common.UUIDint64()

	order := seedOrder(t, db, userID, "100.00", time.Now())
	require.NoError(t, db.Create(&domain.OrderDetail{
		ID:           common.UUIDint64(),
		OrderID:      order.ID,
		ProductID:    common.UUIDint64(), // no longer in the catalog
		ProductTitle: "Discontinued Mouse",
		Price:        decimal.RequireFromString("100.00"),
		Quantity:     1,
	}).Error)

	view, err := svc.GetOrderDetail(context.Background(), order.ID, userID)
	require.NoError(t, err)
	require.Len(t, view.Details, 1)
	assert.Equal(t, "Discontinued Mouse", view.Details[0].ProductTitle)
	assert.Empty(t, view.Details[0].ImageUrl)
}

func TestAdminOrderQueriesIncludePurchaser(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderQueryService(db)
	user := seedUser(t, db, "buyer@example.com")

	order := seedOrder(t, db, user.ID, "42.00", time.Now())

	view, err := svc.AdminGetOrderDetail(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", view.UserEmail)
	assert.Equal(t, "Test User", view.UserName)

	rows, total, err := svc.AdminListOrders(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "buyer@example.com", rows[0].UserEmail)
}

func TestListUnpaidBefore(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderQueryService(db)
	userID := common.UUIDint64()
	cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	stale := seedOrder(t, db, userID, "10.00", cutoff.Add(-time.Hour))
	seedOrder(t, db, userID, "20.00", cutoff.Add(time.Hour))

	paid := seedOrder(t, db, userID, "30.00", cutoff.Add(-2*time.Hour))
	require.NoError(t, db.Model(&domain.Order{}).Where("id = ?", paid.ID).
		Update("status", domain.OrderStatusPaid).Error)

	rows, err := svc.ListUnpaidBefore(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}
