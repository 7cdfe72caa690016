package webserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdemo/shopapi/internal/domain"
)

func signTestToken(t *testing.T, secret, role string, userID int64) string {
	t.Helper()
	claims := &ShopClaims{
		UserID: userID,
		Email:  "buyer@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJwtAuthParsesShopClaims(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		claims := CurrentUser(c)
		require.NotNil(t, claims)
		return c.String(http.StatusOK,
			fmt.Sprintf("%d:%s:%s", claims.UserID, claims.Email, claims.Role))
	}, JwtAuth("sekret"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signTestToken(t, "sekret", domain.RoleUser, 42))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42:buyer@example.com:user", rec.Body.String())
}

func TestJwtAuthRejectsBadTokens(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, JwtAuth("sekret"))

	// No token at all.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)

	// Signed with the wrong secret.
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signTestToken(t, "other-secret", domain.RoleUser, 42))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleGatesByCapability(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, JwtAuth("sekret"), RequireRole(domain.RoleAdmin, domain.RoleStaff))

	cases := []struct {
		role string
		want int
	}{
		{domain.RoleUser, http.StatusForbidden},
		{domain.RoleStaff, http.StatusOK},
		{domain.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set(echo.HeaderAuthorization,
			"Bearer "+signTestToken(t, "sekret", tc.role, 7))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "role %s", tc.role)
	}
}
