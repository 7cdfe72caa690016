package shopapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/internal/webserver"
	"github.com/shopdemo/shopapi/pkg/common"
)

func registerAdminProductRoutes() {
	webserver.AdminPOST("/products", createProduct)
	webserver.AdminPUT("/products/:id", updateProduct)
	webserver.AdminDELETE("/products/:id", deleteProduct)
	webserver.AdminGET("/products/export", exportProductsCsv)
	webserver.AdminPOST("/products/import", importProductsCsv)

	webserver.AdminPOST("/categories", createCategory)
	webserver.AdminPUT("/categories/:id", updateCategory)
	webserver.AdminDELETE("/categories/:id", deleteCategory)
}

type productForm struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageUrl    string          `json:"image_url"`
	Stock       int             `json:"stock" validate:"min=0"`
	CategoryID  int64           `json:"category_id,string" validate:"required"`
}

func createProduct(c echo.Context) error {
	var form productForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	if form.Price.IsNegative() {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "price must not be negative", nil)
	}
	product := domain.Product{
		ID:          common.UUIDint64(),
		Title:       form.Title,
		Description: form.Description,
		Price:       form.Price,
		ImageUrl:    form.ImageUrl,
		Stock:       form.Stock,
		CategoryID:  form.CategoryID,
	}
	if err := GetDB(c).Create(&product).Error; err != nil {
		zap.L().Error("product create failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product create failed", nil)
	}
	return ok(c, product)
}

type productUpdateForm struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageUrl    *string          `json:"image_url"`
	Stock       *int             `json:"stock"`
	CategoryID  *int64           `json:"category_id,string"`
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
	}
	var form productUpdateForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}

	values := map[string]interface{}{}
	if form.Title != nil {
		values["title"] = *form.Title
	}
	if form.Description != nil {
		values["description"] = *form.Description
	}
	if form.Price != nil {
		if form.Price.IsNegative() {
			return fail(c, http.StatusBadRequest, "BAD_REQUEST", "price must not be negative", nil)
		}
		values["price"] = *form.Price
	}
	if form.ImageUrl != nil {
		values["image_url"] = *form.ImageUrl
	}
	if form.Stock != nil {
		if *form.Stock < 0 {
			return fail(c, http.StatusBadRequest, "BAD_REQUEST", "stock must not be negative", nil)
		}
		values["stock"] = *form.Stock
	}
	if form.CategoryID != nil {
		values["category_id"] = *form.CategoryID
	}
	if len(values) == 0 {
		return ok(c, echo.Map{"message": "nothing to update"})
	}

	result := GetDB(c).Model(&domain.Product{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product update failed", nil)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	}
	return ok(c, echo.Map{"message": "product updated"})
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
	}
	result := GetDB(c).Delete(&domain.Product{}, id)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product delete failed", nil)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	}
	return ok(c, echo.Map{"message": "product deleted"})
}

type productCsv struct {
	ID          int64  `csv:"id"`
	Title       string `csv:"title"`
	Description string `csv:"description"`
	Price       string `csv:"price"`
	ImageUrl    string `csv:"image_url"`
	Stock       int    `csv:"stock"`
	Category    string `csv:"category"`
}

func exportProductsCsv(c echo.Context) error {
	var products []domain.Product
	if err := GetDB(c).Preload("Category").Order("id ASC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "product query failed", nil)
	}
	rows := make([]productCsv, 0, len(products))
	for _, p := range products {
		row := productCsv{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Price:       p.Price.StringFixed(2),
			ImageUrl:    p.ImageUrl,
			Stock:       p.Stock,
		}
		if p.Category != nil {
			row.Category = p.Category.Name
		}
		rows = append(rows, row)
	}
	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "csv encode failed", nil)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="products-%s.csv"`, time.Now().Format("20060102")))
	return c.Blob(http.StatusOK, "text/csv", data)
}

// importProductsCsv creates rows with an empty id and updates rows
// that carry one. Unknown category names are created on the fly.
func importProductsCsv(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "missing upload file", nil)
	}
	src, err := file.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "unreadable upload file", nil)
	}
	defer src.Close()

	var rows []productCsv
	if err := gocsv.Unmarshal(src, &rows); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid csv: "+err.Error(), nil)
	}

	db := GetDB(c)
	var created, updated int
	err = db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			price, perr := decimal.NewFromString(row.Price)
			if perr != nil || price.IsNegative() || row.Stock < 0 {
				return fmt.Errorf("row %d: invalid price or stock", i+2)
			}
			categoryID, cerr := resolveCategory(tx, row.Category)
			if cerr != nil {
				return cerr
			}
			if row.ID == 0 {
				if cerr := tx.Create(&domain.Product{
					ID:          common.UUIDint64(),
					Title:       row.Title,
					Description: row.Description,
					Price:       price,
					ImageUrl:    row.ImageUrl,
					Stock:       row.Stock,
					CategoryID:  categoryID,
				}).Error; cerr != nil {
					return cerr
				}
				created++
				continue
			}
			result := tx.Model(&domain.Product{}).Where("id = ?", row.ID).
				Updates(map[string]interface{}{
					"title":       row.Title,
					"description": row.Description,
					"price":       price,
					"image_url":   row.ImageUrl,
					"stock":       row.Stock,
					"category_id": categoryID,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("row %d: product %d not found", i+2, row.ID)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return fail(c, http.StatusBadRequest, "IMPORT_FAILED", err.Error(), nil)
	}
	return ok(c, echo.Map{"created": created, "updated": updated})
}

func resolveCategory(tx *gorm.DB, name string) (int64, error) {
	if name == "" {
		name = "general"
	}
	var category domain.Category
	err := tx.Where("name = ?", name).First(&category).Error
	if err == gorm.ErrRecordNotFound {
		category = domain.Category{ID: common.UUIDint64(), Name: name}
		err = tx.Create(&category).Error
	}
	if err != nil {
		return 0, err
	}
	return category.ID, nil
}

type categoryForm struct {
	Name string `json:"name" validate:"required"`
}

func createCategory(c echo.Context) error {
	var form categoryForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	category := domain.Category{ID: common.UUIDint64(), Name: form.Name}
	if err := GetDB(c).Create(&category).Error; err != nil {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "category already exists", nil)
	}
	return ok(c, category)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
	}
	var form categoryForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	result := GetDB(c).Model(&domain.Category{}).Where("id = ?", id).Update("name", form.Name)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "category update failed", nil)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	}
	return ok(c, echo.Map{"message": "category updated"})
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
	}
	db := GetDB(c)
	var inUse int64
	db.Model(&domain.Product{}).Where("category_id = ?", id).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE", "category still has products", nil)
	}
	result := db.Delete(&domain.Category{}, id)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "category delete failed", nil)
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	}
	return ok(c, echo.Map{"message": "category deleted"})
}
