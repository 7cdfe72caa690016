package shopapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/internal/webserver"
)

func registerProductRoutes() {
	webserver.PubGET("/products", listProducts)
	webserver.PubGET("/products/:id", getProduct)
}

var productSortColumns = map[string]string{
	"id":         "id",
	"title":      "title",
	"price":      "price",
	"created_at": "created_at",
}

func listProducts(c echo.Context) error {
	db := GetDB(c)
	page, pageSize := parsePagination(c)

	query := db.Model(&domain.Product{})
	if keyword := strings.TrimSpace(c.QueryParam("q")); keyword != "" {
		like := "like"
		if strings.EqualFold(db.Name(), "postgres") {
			like = "ilike"
		}
		pattern := "%" + keyword + "%"
		query = query.Where(
			fmt.Sprintf("title %s ? or description %s ?", like, like),
			pattern, pattern)
	}
	if cid, err := strconv.ParseInt(c.QueryParam("categoryId"), 10, 64); err == nil && cid > 0 {
		query = query.Where("category_id = ?", cid)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product query failed", nil)
	}

	order := "created_at DESC"
	if column, valid := productSortColumns[c.QueryParam("sort")]; valid {
		direction := "ASC"
		if strings.EqualFold(c.QueryParam("dir"), "desc") {
			direction = "DESC"
		}
		order = column + " " + direction
	}

	var rows []domain.Product
	err := query.Preload("Category").
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product query failed", nil)
	}
	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
	}
	var product domain.Product
	err = GetDB(c).Preload("Category").First(&product, id).Error
	if err == gorm.ErrRecordNotFound {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product query failed", nil)
	}
	return ok(c, product)
}

func registerCategoryRoutes() {
	webserver.PubGET("/categories", listCategories)
}

func listCategories(c echo.Context) error {
	var rows []domain.Category
	if err := GetDB(c).Order("name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "category query failed", nil)
	}
	return ok(c, rows)
}
