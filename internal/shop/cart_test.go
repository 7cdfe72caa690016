package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

func TestGetCartWithoutCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	view, err := svc.GetCart(context.Background(), common.UUIDint64())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	userID := common.UUIDint64()
	product := seedProduct(t, db, "Gaming Mouse", "100.00", 5)

	require.NoError(t, svc.AddItem(context.Background(), userID, product.ID, 2))
	require.NoError(t, svc.AddItem(context.Background(), userID, product.ID, 3))

	view, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, "Gaming Mouse", view.Items[0].ProductTitle)

	assert.EqualValues(t, 1, countRows(t, db, &domain.CartItem{}))
}

func TestAddItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	userID := common.UUIDint64()
	product := seedProduct(t, db, "Gaming Mouse", "100.00", 5)

	require.Error(t, svc.AddItem(context.Background(), userID, product.ID, 0))
	require.ErrorIs(t, svc.AddItem(context.Background(), userID, common.UUIDint64(), 1),
		ErrProductNotFound)
}

func TestRemoveItemRequiresOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	owner := common.UUIDint64()
	other := common.UUIDint64()
	product := seedProduct(t, db, "Gaming Mouse", "100.00", 5)

	require.NoError(t, svc.AddItem(context.Background(), owner, product.ID, 1))
	view, err := svc.GetCart(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	itemID := view.Items[0].ID

	// A stranger deleting the item looks like the item not existing.
	require.ErrorIs(t, svc.RemoveItem(context.Background(), other, itemID), ErrCartItemNotFound)
	assert.EqualValues(t, 1, countRows(t, db, &domain.CartItem{}))

	require.NoError(t, svc.RemoveItem(context.Background(), owner, itemID))
	assert.EqualValues(t, 0, countRows(t, db, &domain.CartItem{}))
}

func TestClearCartIsNoopWithoutCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)

	require.NoError(t, svc.ClearCart(context.Background(), common.UUIDint64()))
}

func TestClearCartRemovesAllItems(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	userID := common.UUIDint64()

	x := seedProduct(t, db, "Gaming Mouse", "100.00", 5)
	y := seedProduct(t, db, "Keyboard", "50.00", 1)
	require.NoError(t, svc.AddItem(context.Background(), userID, x.ID, 1))
	require.NoError(t, svc.AddItem(context.Background(), userID, y.ID, 2))

	require.NoError(t, svc.ClearCart(context.Background(), userID))
	view, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}
