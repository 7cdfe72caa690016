package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopdemo/shopapi/internal/shop"
	"github.com/shopdemo/shopapi/internal/webserver"
)

func registerCartRoutes() {
	webserver.ApiGET("/cart", getCart)
	webserver.ApiPOST("/cart/items", addCartItem)
	webserver.ApiDELETE("/cart/items/:id", removeCartItem)
	webserver.ApiDELETE("/cart", clearCart)
}

func getCart(c echo.Context) error {
	view, err := application.CartService().GetCart(c.Request().Context(), currentUserID(c))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "cart query failed", nil)
	}
	return ok(c, view)
}

type addItemForm struct {
	ProductID int64 `json:"product_id,string" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

func addCartItem(c echo.Context) error {
	var form addItemForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	err := application.CartService().AddItem(
		c.Request().Context(), currentUserID(c), form.ProductID, form.Quantity)
	switch err {
	case nil:
		return ok(c, echo.Map{"message": "item added"})
	case shop.ErrProductNotFound:
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	default:
		if shop.IsClientError(err) {
			return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		}
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "cart update failed", nil)
	}
}

func removeCartItem(c echo.Context) error {
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
	}
	err = application.CartService().RemoveItem(c.Request().Context(), currentUserID(c), itemID)
	switch err {
	case nil:
		return ok(c, echo.Map{"message": "item removed"})
	case shop.ErrCartItemNotFound:
		return fail(c, http.StatusNotFound, "ITEM_NOT_FOUND", "cart item not found", nil)
	default:
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "cart update failed", nil)
	}
}

func clearCart(c echo.Context) error {
	if err := application.CartService().ClearCart(c.Request().Context(), currentUserID(c)); err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "cart update failed", nil)
	}
	return ok(c, echo.Map{"message": "cart cleared"})
}
