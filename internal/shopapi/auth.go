package shopapi

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/internal/webserver"
	"github.com/shopdemo/shopapi/pkg/common"
)

func registerAuthRoutes() {
	webserver.PubPOST("/auth/register", register)
	webserver.PubPOST("/auth/login", login)
}

type registerForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name"`
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}

	db := GetDB(c)
	var count int64
	db.Model(&domain.User{}).Where("email = ?", form.Email).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "EMAIL_TAKEN", "email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "registration failed", nil)
	}
	user := domain.User{
		ID:           common.UUIDint64(),
		Email:        form.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		FullName:     form.FullName,
	}
	if err := db.Create(&user).Error; err != nil {
		zap.L().Error("user create failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "registration failed", nil)
	}
	return ok(c, echo.Map{"message": "register succeeded"})
}

func login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}

	db := GetDB(c)
	var user domain.User
	err := db.Where("email = ?", form.Email).First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}

	db.Model(&domain.User{}).Where("id = ?", user.ID).Update("last_login", time.Now())

	cfg := application.Config()
	claims := &webserver.ShopClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.Web.JwtExpire) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Web.Secret))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "token signing failed", nil)
	}
	return ok(c, echo.Map{"token": token})
}

func registerProfileRoutes() {
	webserver.ApiGET("/profile", getProfile)
	webserver.ApiPUT("/profile", updateProfile)
}

func getProfile(c echo.Context) error {
	var user domain.User
	if err := GetDB(c).First(&user, currentUserID(c)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "profile query failed", nil)
	}
	return ok(c, user)
}

type profileForm struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

func updateProfile(c echo.Context) error {
	var form profileForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	values := map[string]interface{}{}
	if form.FullName != nil {
		values["full_name"] = *form.FullName
	}
	if form.Phone != nil {
		values["phone"] = *form.Phone
	}
	if form.Address != nil {
		values["address"] = *form.Address
	}
	if len(values) == 0 {
		return ok(c, echo.Map{"message": "nothing to update"})
	}
	if err := GetDB(c).Model(&domain.User{}).Where("id = ?", currentUserID(c)).
		Updates(values).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "profile update failed", nil)
	}
	return ok(c, echo.Map{"message": "profile updated"})
}
