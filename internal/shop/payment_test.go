package shop

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

type stubSettings map[string]string

func (s stubSettings) GetString(category, name string) string {
	return s[category+"."+name]
}

func testSettings() stubSettings {
	return stubSettings{
		"system.shop_name":        "Demo Shop",
		"payment.merchant_id":     "2000132",
		"payment.hash_key":        "5294y06JbISpM5x9",
		"payment.hash_iv":         "v77hoKGq4kWxNNIS",
		"payment.gateway_url":     "https://payment-stage.example.com/Cashier/AioCheckOut/V5",
		"payment.query_url":       "https://payment-stage.example.com/Cashier/QueryTradeInfo/V5",
		"payment.app_url":         "http://localhost:1816",
		"payment.client_back_url": "http://localhost:3000/orders",
	}
}

// signForm computes the checksum a genuine gateway callback would carry.
func signForm(form url.Values, settings stubSettings) {
	params := make(map[string]string, len(form))
	for key := range form {
		params[key] = form.Get(key)
	}
	form.Set("CheckMacValue", checkMacValue(params,
		settings.GetString("payment", "hash_key"),
		settings.GetString("payment", "hash_iv")))
}

func paidCallbackForm(orderID int64) url.Values {
	return url.Values{
		"MerchantID":      {"2000132"},
		"MerchantTradeNo": {"SD" + strconv.FormatInt(orderID, 36) + "0001"},
		"RtnCode":         {"1"},
		"RtnMsg":          {"Succeeded"},
		"TradeAmt":        {"250"},
		"PaymentDate":     {"2026/08/29 10:30:00"},
		"PaymentType":     {"Credit_CreditCard"},
		"CustomField1":    {strconv.FormatInt(orderID, 10)},
	}
}

func TestBuildPaymentRequestSignsForm(t *testing.T) {
	db := newTestDB(t)
	settings := testSettings()
	svc := NewPaymentService(db, settings, nil)

	order := seedOrder(t, db, common.UUIDint64(), "250.00", time.Now())
	require.NoError(t, db.Create(&domain.OrderDetail{
		ID:           common.UUIDint64(),
		OrderID:      order.ID,
		ProductID:    common.UUIDint64(),
		ProductTitle: "Gaming Mouse",
		Price:        decimal.RequireFromString("125.00"),
		Quantity:     2,
	}).Error)

	request, err := svc.BuildPaymentRequest(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, settings.GetString("payment", "gateway_url"), request.GatewayURL)
	assert.Equal(t, "2000132", request.Fields["MerchantID"])
	assert.Equal(t, "250", request.Fields["TotalAmount"])
	assert.Equal(t, strconv.FormatInt(order.ID, 10), request.Fields["CustomField1"])
	assert.Contains(t, request.Fields["ItemName"], "Gaming Mouse x 2")

	// The outbound signature round-trips through callback verification.
	form := url.Values{}
	for key, value := range request.Fields {
		form.Set(key, value)
	}
	require.NoError(t, svc.VerifyCallback(form))

	// The merchant trade no is persisted for the status sync job.
	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, request.Fields["MerchantTradeNo"], stored.TradeNo)
	assert.Regexp(t, `^SD`, stored.TradeNo)
}

func TestBuildPaymentRequestRejectsPaidOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, testSettings(), nil)

	order := seedOrder(t, db, common.UUIDint64(), "100.00", time.Now())
	require.NoError(t, db.Model(&domain.Order{}).Where("id = ?", order.ID).
		Update("status", domain.OrderStatusPaid).Error)

	_, err := svc.BuildPaymentRequest(context.Background(), order.ID)
	require.Error(t, err)

	_, err = svc.BuildPaymentRequest(context.Background(), common.UUIDint64())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVerifyCallbackRejectsTampering(t *testing.T) {
	db := newTestDB(t)
	settings := testSettings()
	svc := NewPaymentService(db, settings, nil)

	form := paidCallbackForm(1)
	require.ErrorIs(t, svc.VerifyCallback(form), ErrPaymentVerify) // unsigned

	signForm(form, settings)
	require.NoError(t, svc.VerifyCallback(form))

	form.Set("TradeAmt", "1") // tampered after signing
	require.ErrorIs(t, svc.VerifyCallback(form), ErrPaymentVerify)
}

func TestApplyCallbackMarksPaidIdempotently(t *testing.T) {
	db := newTestDB(t)
	settings := testSettings()
	bus := EventBus.New()
	var paidEvents int
	require.NoError(t, bus.Subscribe(TopicOrderPaid, func(*domain.Order) {
		paidEvents++
	}))
	svc := NewPaymentService(db, settings, bus)

	order := seedOrder(t, db, common.UUIDint64(), "250.00", time.Now())
	form := paidCallbackForm(order.ID)
	signForm(form, settings)

	updated, err := svc.ApplyCallback(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)
	assert.True(t, updated.PaidAt.Equal(time.Date(2026, 8, 29, 10, 30, 0, 0, time.Local)),
		"paid_at = %s", updated.PaidAt)

	// The gateway retries callbacks; a second delivery is satisfied
	// without flipping anything or re-announcing the payment.
	again, err := svc.ApplyCallback(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, again.Status)
	assert.Equal(t, 1, paidEvents)
}

func TestApplyCallbackBadChecksum(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db, testSettings(), nil)

	order := seedOrder(t, db, common.UUIDint64(), "250.00", time.Now())
	form := paidCallbackForm(order.ID)
	form.Set("CheckMacValue", "DEADBEEF")

	_, err := svc.ApplyCallback(context.Background(), form)
	require.ErrorIs(t, err, ErrPaymentVerify)

	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, domain.OrderStatusUnpaid, stored.Status)
}

func TestApplyCallbackFailureCodeLeavesOrderUnpaid(t *testing.T) {
	db := newTestDB(t)
	settings := testSettings()
	svc := NewPaymentService(db, settings, nil)

	order := seedOrder(t, db, common.UUIDint64(), "250.00", time.Now())
	form := paidCallbackForm(order.ID)
	form.Set("RtnCode", "10200095")
	signForm(form, settings)

	_, err := svc.ApplyCallback(context.Background(), form)
	require.ErrorIs(t, err, ErrPaymentFailed)

	var stored domain.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, domain.OrderStatusUnpaid, stored.Status)
	assert.Nil(t, stored.PaidAt)
}
