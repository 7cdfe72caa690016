package shopapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/labstack/echo/v4"

	"github.com/shopdemo/shopapi/internal/shop"
	"github.com/shopdemo/shopapi/internal/webserver"
)

func registerAdminOrderRoutes() {
	webserver.AdminGET("/orders", adminListOrders)
	webserver.AdminGET("/orders/:id", adminGetOrder)
	webserver.AdminGET("/orders/export", adminExportOrders)
}

func adminListOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	rows, total, err := application.OrderService().AdminListOrders(c.Request().Context(), page, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
	}
	return paged(c, rows, total, page, pageSize)
}

func adminGetOrder(c echo.Context) error {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
	}
	view, err := application.OrderService().AdminGetOrderDetail(c.Request().Context(), orderID)
	switch err {
	case nil:
		return ok(c, view)
	case shop.ErrOrderNotFound:
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	default:
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
	}
}

const exportBatchSize = 1000

// adminExportOrders streams the full order book as an xlsx workbook.
func adminExportOrders(c echo.Context) error {
	file := excelize.NewFile()
	sheet := "Sheet1"
	headers := []string{"Order ID", "User ID", "User Email", "User Name", "Total Amount", "Status", "Created At"}
	for i, h := range headers {
		file.SetCellValue(sheet, fmt.Sprintf("%c1", 'A'+i), h)
	}

	line := 2
	for page := 1; ; page++ {
		rows, _, err := application.OrderService().AdminListOrders(
			c.Request().Context(), page, exportBatchSize)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "order query failed", nil)
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			file.SetCellValue(sheet, fmt.Sprintf("A%d", line), fmt.Sprintf("%d", row.ID))
			file.SetCellValue(sheet, fmt.Sprintf("B%d", line), fmt.Sprintf("%d", row.UserID))
			file.SetCellValue(sheet, fmt.Sprintf("C%d", line), row.UserEmail)
			file.SetCellValue(sheet, fmt.Sprintf("D%d", line), row.UserName)
			file.SetCellValue(sheet, fmt.Sprintf("E%d", line), row.TotalAmount.StringFixed(2))
			file.SetCellValue(sheet, fmt.Sprintf("F%d", line), row.Status)
			file.SetCellValue(sheet, fmt.Sprintf("G%d", line), row.CreatedAt.Format("2006-01-02 15:04:05"))
			line++
		}
		if len(rows) < exportBatchSize {
			break
		}
	}

	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="orders-%s.xlsx"`, time.Now().Format("20060102")))
	c.Response().WriteHeader(http.StatusOK)
	return file.Write(c.Response())
}
