package shop

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory database per test. The shared cache
// keeps the database alive across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:shoptest%d?mode=memory&cache=shared",
		atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

// newFileTestDB opens a file-backed database for tests that run real
// concurrent transactions: immediate transactions plus a busy timeout
// make overlapping writers queue instead of failing.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_txlock=immediate&_busy_timeout=10000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title, price string, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		ID:    common.UUIDint64(),
		Title: title,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:       common.UUIDint64(),
		Email:    email,
		Role:     domain.RoleUser,
		FullName: "Test User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func addToCart(t *testing.T, db *gorm.DB, userID int64, product *domain.Product, quantity int) {
	t.Helper()
	require.NoError(t, NewCartService(db).AddItem(context.Background(), userID, product.ID, quantity))
}

func reloadProduct(t *testing.T, db *gorm.DB, id int64) *domain.Product {
	t.Helper()
	var product domain.Product
	require.NoError(t, db.First(&product, id).Error)
	return &product
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}
