package app

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/internal/shop"
	"github.com/shopdemo/shopapi/pkg/metrics"
)

func (a *Application) initEvents() {
	if err := a.bus.Subscribe(shop.TopicOrderCreated, a.onOrderCreated); err != nil {
		zap.L().Error("failed to subscribe order.created", zap.Error(err))
	}
	if err := a.bus.Subscribe(shop.TopicOrderPaid, a.onOrderPaid); err != nil {
		zap.L().Error("failed to subscribe order.paid", zap.Error(err))
	}
}

// onOrderCreated feeds the order counters.
func (a *Application) onOrderCreated(order *domain.Order) {
	metrics.RecordOrderCreated(order.TotalAmount.InexactFloat64())
}

// onOrderPaid records the revenue counter and sends a receipt mail to
// the purchaser when enabled.
func (a *Application) onOrderPaid(order *domain.Order) {
	metrics.RecordOrderPaid(order.TotalAmount.InexactFloat64())

	if !a.ConfigMgr().GetBool("mail", "notify_enabled") {
		return
	}

	var user domain.User
	if err := a.gormDB.First(&user, order.UserID).Error; err != nil {
		zap.L().Warn("receipt mail: purchaser lookup failed",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}

	shopName := a.ConfigMgr().GetString("system", "shop_name")
	m := gomail.NewMessage()
	m.SetHeader("From", a.ConfigMgr().GetString("mail", "from"))
	m.SetHeader("To", user.Email)
	m.SetHeader("Subject", fmt.Sprintf("%s order #%d paid", shopName, order.ID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Your order #%d has been paid.\nTotal amount: %s\nThank you for shopping at %s.",
		order.ID, order.TotalAmount.StringFixed(2), shopName))

	dialer := gomail.NewDialer(
		a.ConfigMgr().GetString("mail", "smtp_host"),
		int(a.ConfigMgr().GetInt64("mail", "smtp_port")),
		a.ConfigMgr().GetString("mail", "smtp_user"),
		a.ConfigMgr().GetString("mail", "smtp_passwd"),
	)
	if err := dialer.DialAndSend(m); err != nil {
		zap.L().Warn("receipt mail send failed",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}
