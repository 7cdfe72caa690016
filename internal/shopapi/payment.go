package shopapi

import (
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shopdemo/shopapi/internal/shop"
	"github.com/shopdemo/shopapi/internal/webserver"
)

func registerPaymentRoutes() {
	webserver.ApiPOST("/payment/checkout", paymentCheckout)
	webserver.PubPOST("/payment/callback", paymentCallback)
}

type paymentCheckoutForm struct {
	OrderID int64 `json:"order_id,string" validate:"required"`
}

// paymentCheckout answers with a self-submitting HTML form that
// redirects the browser to the gateway's hosted payment page.
func paymentCheckout(c echo.Context) error {
	var form paymentCheckoutForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}

	// Ownership gate: paying someone else's order is indistinguishable
	// from paying a missing one.
	if _, err := application.OrderService().GetOrderDetail(
		c.Request().Context(), form.OrderID, currentUserID(c)); err != nil {
		if err == shop.ErrOrderNotFound {
			return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
	}

	request, err := application.PaymentService().BuildPaymentRequest(c.Request().Context(), form.OrderID)
	if err != nil {
		if err == shop.ErrOrderNotFound {
			return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
		}
		return fail(c, http.StatusBadRequest, "PAYMENT_REJECTED", err.Error(), nil)
	}
	return c.HTML(http.StatusOK, renderGatewayForm(request))
}

func renderGatewayForm(request *shop.PaymentRequest) string {
	names := make([]string, 0, len(request.Fields))
	for name := range request.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>")
	b.WriteString(`<form id="gateway" method="post" action="`)
	b.WriteString(html.EscapeString(request.GatewayURL))
	b.WriteString(`">`)
	for _, name := range names {
		b.WriteString(`<input type="hidden" name="`)
		b.WriteString(html.EscapeString(name))
		b.WriteString(`" value="`)
		b.WriteString(html.EscapeString(request.Fields[name]))
		b.WriteString(`">`)
	}
	b.WriteString(`</form><script>document.getElementById("gateway").submit();</script>`)
	b.WriteString("</body></html>")
	return b.String()
}

// paymentCallback receives the gateway's server-to-server result. The
// gateway retries unless it reads the fixed acknowledgement token.
func paymentCallback(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusBadRequest, "0|bad request")
	}
	order, err := application.PaymentService().ApplyCallback(c.Request().Context(), params)
	switch err {
	case nil:
		zap.L().Info("payment callback applied", zap.Int64("order_id", order.ID))
		return c.String(http.StatusOK, shop.AckSuccess)
	case shop.ErrPaymentVerify:
		zap.L().Warn("payment callback rejected: bad checksum")
		return c.String(http.StatusBadRequest, "0|check mac value failed")
	case shop.ErrPaymentFailed:
		zap.L().Warn("payment callback reported failure",
			zap.String("rtn_code", params.Get("RtnCode")))
		return c.String(http.StatusBadRequest, "0|payment failed")
	case shop.ErrOrderNotFound:
		return c.String(http.StatusBadRequest, "0|order not found")
	default:
		zap.L().Error("payment callback failed", zap.Error(err))
		return c.String(http.StatusInternalServerError, "0|server error")
	}
}
