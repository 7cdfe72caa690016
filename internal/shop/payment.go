package shop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/asaskevich/EventBus"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

// AckSuccess is the fixed acknowledgement token the gateway expects
// in the callback response body.
const AckSuccess = "1|OK"

// SettingsReader provides runtime payment settings (merchant id, hash
// secrets, gateway urls) from the settings store.
type SettingsReader interface {
	GetString(category, name string) string
}

// PaymentService bridges orders to the external payment processor:
// it signs the outbound redirect form and applies verified callbacks
// as an idempotent unpaid -> paid transition.
type PaymentService struct {
	db       *gorm.DB
	settings SettingsReader
	bus      EventBus.Bus
}

func NewPaymentService(db *gorm.DB, settings SettingsReader, bus EventBus.Bus) *PaymentService {
	return &PaymentService{db: db, settings: settings, bus: bus}
}

// PaymentRequest carries the signed form fields for the gateway
// redirect; the HTML rendering is a transport concern.
type PaymentRequest struct {
	GatewayURL string
	Fields     map[string]string
}

// BuildPaymentRequest prepares the signed gateway form for an order.
// The order reference travels in CustomField1; the merchant trade no
// gets a random suffix so retried payment attempts stay unique.
func (s *PaymentService) BuildPaymentRequest(ctx context.Context, orderID int64) (*PaymentRequest, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).Preload("Details").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "query order")
	}
	if order.Status == domain.OrderStatusPaid {
		return nil, errors.New("order already paid")
	}
	if !order.TotalAmount.IsPositive() {
		return nil, errors.New("invalid order amount")
	}

	tradeNo := fmt.Sprintf("SD%s%04d", strconv.FormatInt(order.ID, 36), common.RandomNum(10000))
	if err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", order.ID).
		UpdateColumn("trade_no", tradeNo).Error; err != nil {
		return nil, errors.Wrap(err, "save trade no")
	}

	itemNames := make([]string, 0, len(order.Details))
	for _, d := range order.Details {
		itemNames = append(itemNames, fmt.Sprintf("%s x %d", d.ProductTitle, d.Quantity))
	}
	itemName := strings.Join(itemNames, "#")
	if len(itemName) > 200 {
		itemName = itemName[:200]
	}

	appURL := strings.TrimRight(s.settings.GetString("payment", "app_url"), "/")
	fields := map[string]string{
		"MerchantID":        s.settings.GetString("payment", "merchant_id"),
		"MerchantTradeNo":   tradeNo,
		"MerchantTradeDate": time.Now().Format("2006/01/02 15:04:05"),
		"PaymentType":       "aio",
		"TotalAmount":       order.TotalAmount.StringFixed(0),
		"TradeDesc":         s.settings.GetString("system", "shop_name"),
		"ItemName":          itemName,
		"ReturnURL":         appURL + "/payment/callback",
		"ClientBackURL":     s.settings.GetString("payment", "client_back_url"),
		"ChoosePayment":     "Credit",
		"EncryptType":       "1",
		"CustomField1":      strconv.FormatInt(order.ID, 10),
	}
	fields["CheckMacValue"] = checkMacValue(fields,
		s.settings.GetString("payment", "hash_key"),
		s.settings.GetString("payment", "hash_iv"))

	return &PaymentRequest{
		GatewayURL: s.settings.GetString("payment", "gateway_url"),
		Fields:     fields,
	}, nil
}

// VerifyCallback authenticates an inbound callback payload against the
// shared-secret checksum before any field of it is trusted.
func (s *PaymentService) VerifyCallback(form url.Values) error {
	mac := form.Get("CheckMacValue")
	if mac == "" {
		return ErrPaymentVerify
	}
	params := make(map[string]string, len(form))
	for key := range form {
		if key == "CheckMacValue" {
			continue
		}
		params[key] = form.Get(key)
	}
	expected := checkMacValue(params,
		s.settings.GetString("payment", "hash_key"),
		s.settings.GetString("payment", "hash_iv"))
	if !strings.EqualFold(mac, expected) {
		return ErrPaymentVerify
	}
	return nil
}

// ApplyCallback verifies the payload and transitions the referenced
// order unpaid -> paid. A repeated callback for an already paid order
// is treated as already satisfied, not an error.
func (s *PaymentService) ApplyCallback(ctx context.Context, form url.Values) (*domain.Order, error) {
	if err := s.VerifyCallback(form); err != nil {
		return nil, err
	}
	if form.Get("RtnCode") != "1" {
		return nil, ErrPaymentFailed
	}

	orderID, err := strconv.ParseInt(form.Get("CustomField1"), 10, 64)
	if err != nil || orderID == 0 {
		return nil, ErrOrderNotFound
	}

	paidAt := time.Now()
	if raw := form.Get("PaymentDate"); raw != "" {
		if t, perr := dateparse.ParseLocal(raw); perr == nil {
			paidAt = t
		}
	}
	return s.markPaid(ctx, orderID, paidAt)
}

func (s *PaymentService) markPaid(ctx context.Context, orderID int64, paidAt time.Time) (*domain.Order, error) {
	var order domain.Order
	transitioned := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return errors.Wrap(err, "query order")
		}
		if order.Status == domain.OrderStatusPaid {
			return nil
		}
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", orderID, domain.OrderStatusUnpaid).
			Updates(map[string]interface{}{
				"status":  domain.OrderStatusPaid,
				"paid_at": paidAt,
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update order status")
		}
		if res.RowsAffected == 0 {
			// Lost a race with another callback; re-read for the caller.
			return tx.First(&order, orderID).Error
		}
		order.Status = domain.OrderStatusPaid
		order.PaidAt = &paidAt
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		if s.bus != nil {
			s.bus.Publish(TopicOrderPaid, &order)
		}
		zap.L().Info("order paid",
			zap.Int64("order_id", order.ID),
			zap.String("total", order.TotalAmount.StringFixed(2)))
	}
	return &order, nil
}

// SyncPendingOrders re-queries the gateway for unpaid orders whose
// payment attempt may have completed without the callback arriving
// (e.g. the server was unreachable) and applies the same idempotent
// transition. Safe to run repeatedly.
func (s *PaymentService) SyncPendingOrders(ctx context.Context, olderThan time.Duration, limit int) {
	queryURL := s.settings.GetString("payment", "query_url")
	merchantID := s.settings.GetString("payment", "merchant_id")
	if queryURL == "" || merchantID == "" {
		return
	}

	var orders []domain.Order
	cutoff := time.Now().Add(-olderThan)
	err := s.db.WithContext(ctx).
		Where("status = ? AND trade_no <> '' AND created_at < ?", domain.OrderStatusUnpaid, cutoff).
		Order("created_at").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		zap.L().Error("payment sync: query unpaid orders failed", zap.Error(err))
		return
	}

	for _, order := range orders {
		paid, paidAt, qerr := s.queryTradeStatus(queryURL, merchantID, order.TradeNo)
		if qerr != nil {
			zap.L().Warn("payment sync: gateway query failed",
				zap.Int64("order_id", order.ID), zap.Error(qerr))
			continue
		}
		if !paid {
			continue
		}
		if _, merr := s.markPaid(ctx, order.ID, paidAt); merr != nil {
			zap.L().Error("payment sync: mark paid failed",
				zap.Int64("order_id", order.ID), zap.Error(merr))
		}
	}
}

// queryTradeStatus asks the gateway for the state of one trade. The
// response is a query-string encoded body.
func (s *PaymentService) queryTradeStatus(queryURL, merchantID, tradeNo string) (bool, time.Time, error) {
	params := map[string]string{
		"MerchantID":      merchantID,
		"MerchantTradeNo": tradeNo,
		"TimeStamp":       strconv.FormatInt(time.Now().Unix(), 10),
	}
	params["CheckMacValue"] = checkMacValue(params,
		s.settings.GetString("payment", "hash_key"),
		s.settings.GetString("payment", "hash_iv"))

	var body string
	err := gout.POST(queryURL).
		SetWWWForm(gout.H{
			"MerchantID":      params["MerchantID"],
			"MerchantTradeNo": params["MerchantTradeNo"],
			"TimeStamp":       params["TimeStamp"],
			"CheckMacValue":   params["CheckMacValue"],
		}).
		SetTimeout(10 * time.Second).
		BindBody(&body).
		Do()
	if err != nil {
		return false, time.Time{}, errors.Wrap(err, "gateway query")
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return false, time.Time{}, errors.Wrap(err, "parse gateway response")
	}
	if values.Get("TradeStatus") != "1" {
		return false, time.Time{}, nil
	}
	paidAt := time.Now()
	if raw := values.Get("PaymentDate"); raw != "" {
		if t, perr := dateparse.ParseLocal(raw); perr == nil {
			paidAt = t
		}
	}
	return true, paidAt, nil
}

// checkMacValue implements the gateway checksum: parameters sorted
// A-Z, wrapped in HashKey/HashIV, url-encoded with the gateway's
// dotnet-style exceptions, SHA256, uppercase hex.
func checkMacValue(params map[string]string, hashKey, hashIV string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("HashKey=" + hashKey)
	for _, k := range keys {
		b.WriteString("&" + k + "=" + params[k])
	}
	b.WriteString("&HashIV=" + hashIV)

	encoded := strings.ToLower(url.QueryEscape(b.String()))
	replacer := strings.NewReplacer(
		"%21", "!",
		"%2a", "*",
		"%28", "(",
		"%29", ")",
	)
	encoded = replacer.Replace(encoded)

	sum := sha256.Sum256([]byte(encoded))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
