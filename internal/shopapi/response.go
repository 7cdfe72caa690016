package shopapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/app"
	"github.com/shopdemo/shopapi/internal/webserver"
)

var application *app.Application

// Init binds the handler package to the application instance; must be
// called before InitRouter.
func Init(a *app.Application) {
	application = a
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	body := echo.Map{
		"code":  code,
		"error": message,
	}
	if detail != nil {
		body["detail"] = detail
	}
	return c.JSON(status, body)
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"items":   rows,
		"total":   total,
		"page":    page,
		"perPage": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// GetDB returns a request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetDB(c)
}

// currentUserID returns the authenticated user's id; routes under
// /api and /admin always carry a validated token.
func currentUserID(c echo.Context) int64 {
	claims := webserver.CurrentUser(c)
	if claims == nil {
		return 0
	}
	return claims.UserID
}
