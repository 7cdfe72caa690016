package webserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopdemo/shopapi/config"
	"github.com/shopdemo/shopapi/internal/domain"
)

var server *WebServer

// WebServer wraps the echo instance and the route groups handlers
// register into: pub (no auth), api (member token) and admin (member
// token + admin/staff capability, checked once per request here).
type WebServer struct {
	root  *echo.Echo
	cfg   *config.AppConfig
	db    *gorm.DB
	pub   *echo.Group
	api   *echo.Group
	admin *echo.Group
}

func Init(cfg *config.AppConfig, db *gorm.DB) {
	server = NewWebServer(cfg, db)
}

func NewWebServer(cfg *config.AppConfig, db *gorm.DB) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = NewJSONSerializer()
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(ZapLogger())

	s := &WebServer{
		root: e,
		cfg:  cfg,
		db:   db,
	}
	s.pub = e.Group("")
	s.api = e.Group("/api", JwtAuth(cfg.Web.Secret))
	s.admin = e.Group("/admin", JwtAuth(cfg.Web.Secret),
		RequireRole(domain.RoleAdmin, domain.RoleStaff))
	return s
}

func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.S().Infof("starting web server %s", addr)
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func Listen() error {
	return server.Start()
}

func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.root.Shutdown(ctx)
}

// GetDB returns a request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return server.db.WithContext(c.Request().Context())
}

// GetConfig returns the application configuration.
func GetConfig() *config.AppConfig {
	return server.cfg
}

// Public routes (no token).
func PubGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.GET(path, h, m...)
}
func PubPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.pub.POST(path, h, m...)
}

// Member routes under /api (valid token required).
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}
func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}
func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}
func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// Privileged routes under /admin (admin or staff capability).
func AdminGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.GET(path, h, m...)
}
func AdminPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.POST(path, h, m...)
}
func AdminPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.PUT(path, h, m...)
}
func AdminDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.DELETE(path, h, m...)
}
