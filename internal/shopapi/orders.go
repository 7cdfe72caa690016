package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shopdemo/shopapi/internal/shop"
	"github.com/shopdemo/shopapi/internal/webserver"
)

func registerOrderRoutes() {
	webserver.ApiPOST("/orders/checkout", checkout)
	webserver.ApiGET("/orders", listMyOrders)
	webserver.ApiGET("/orders/:id", getOrderDetail)
}

// checkout converts the caller's cart into an order in one storage
// transaction. Stock shortfalls and an empty cart are client errors;
// anything else is a storage failure and nothing is persisted.
func checkout(c echo.Context) error {
	userID := currentUserID(c)
	order, err := application.CheckoutService().Checkout(c.Request().Context(), userID)
	if err != nil {
		if shop.IsClientError(err) {
			return fail(c, http.StatusBadRequest, "CHECKOUT_REJECTED", err.Error(), nil)
		}
		zap.L().Error("checkout failed", zap.Int64("user_id", userID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "checkout failed", nil)
	}
	return ok(c, echo.Map{
		"orderId": order.ID,
		"message": "checkout succeeded",
	})
}

func listMyOrders(c echo.Context) error {
	rows, err := application.OrderService().ListMyOrders(c.Request().Context(), currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
	}
	return ok(c, rows)
}

func getOrderDetail(c echo.Context) error {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
	}
	view, err := application.OrderService().GetOrderDetail(
		c.Request().Context(), orderID, currentUserID(c))
	switch err {
	case nil:
		return ok(c, view)
	case shop.ErrOrderNotFound:
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	default:
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
	}
}
