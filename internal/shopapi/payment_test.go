package shopapi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopdemo/shopapi/config"
	"github.com/shopdemo/shopapi/internal/app"
	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

const (
	testHashKey = "5294y06JbISpM5x9"
	testHashIV  = "v77hoKGq4kWxNNIS"
)

var handlerDBSeq int64

// newHandlerTestApp wires the package-level application to an
// in-memory database with the payment secrets seeded.
func newHandlerTestApp(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:shopapitest%d?mode=memory&cache=shared",
		atomic.AddInt64(&handlerDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	for name, value := range map[string]string{
		"hash_key": testHashKey,
		"hash_iv":  testHashIV,
	} {
		require.NoError(t, db.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  "payment",
			Name:  name,
			Value: value,
		}).Error)
	}

	a := app.NewApplication(config.DefaultAppConfig)
	a.OverrideDB(db)
	Init(a)
	return db
}

// signCallback computes the gateway checksum independently of the
// service implementation: A-Z sort, HashKey/HashIV wrap, lowercased
// url-encoding with the dotnet exceptions, SHA256 uppercase hex.
func signCallback(form url.Values) {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("HashKey=" + testHashKey)
	for _, key := range keys {
		b.WriteString("&" + key + "=" + form.Get(key))
	}
	b.WriteString("&HashIV=" + testHashIV)

	encoded := strings.ToLower(url.QueryEscape(b.String()))
	encoded = strings.NewReplacer("%21", "!", "%2a", "*", "%28", "(", "%29", ")").
		Replace(encoded)
	sum := sha256.Sum256([]byte(encoded))
	form.Set("CheckMacValue", strings.ToUpper(hex.EncodeToString(sum[:])))
}

func postCallback(t *testing.T, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payment/callback",
		strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	require.NoError(t, paymentCallback(e.NewContext(req, rec)))
	return rec
}

func seedUnpaidOrder(t *testing.T, db *gorm.DB) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ID:          common.UUIDint64(),
		UserID:      common.UUIDint64(),
		TotalAmount: decimal.RequireFromString("250.00"),
		Status:      domain.OrderStatusUnpaid,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func callbackForm(orderID int64, rtnCode string) url.Values {
	return url.Values{
		"MerchantID":      {"2000132"},
		"MerchantTradeNo": {"SD" + strconv.FormatInt(orderID, 36) + "0001"},
		"RtnCode":         {rtnCode},
		"TradeAmt":        {"250"},
		"PaymentDate":     {time.Now().Format("2006/01/02 15:04:05")},
		"PaymentType":     {"Credit_CreditCard"},
		"CustomField1":    {strconv.FormatInt(orderID, 10)},
	}
}

func TestPaymentCallbackAcksSuccess(t *testing.T) {
	db := newHandlerTestApp(t)
	order := seedUnpaidOrder(t, db)

	form := callbackForm(order.ID, "1")
	signCallback(form)
	rec := postCallback(t, form)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1|OK", rec.Body.String())

	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)
}

func TestPaymentCallbackFailureCodeGetsErrorStatus(t *testing.T) {
	db := newHandlerTestApp(t)
	order := seedUnpaidOrder(t, db)

	form := callbackForm(order.ID, "10200095")
	signCallback(form)
	rec := postCallback(t, form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "0|payment failed", rec.Body.String())

	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, domain.OrderStatusUnpaid, stored.Status)
}

func TestPaymentCallbackBadChecksum(t *testing.T) {
	db := newHandlerTestApp(t)
	order := seedUnpaidOrder(t, db)

	form := callbackForm(order.ID, "1")
	form.Set("CheckMacValue", "DEADBEEF")
	rec := postCallback(t, form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "0|check mac value failed", rec.Body.String())

	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, domain.OrderStatusUnpaid, stored.Status)
}
