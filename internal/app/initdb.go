package app

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopdemo/shopapi/config"
	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/pkg/common"
)

//go:embed config_schemas.json
var configSchemasData []byte

type ConfigSchema struct {
	Key         string `json:"key"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

type ConfigSchemasJSON struct {
	Schemas []ConfigSchema `json:"schemas"`
}

func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Type) {
	case "sqlite":
		dbfile := filepath.Join(workdir, "data", "shopd.db")
		db, err = gorm.Open(sqlite.Open(dbfile), gormConfig)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			cfg.Host, cfg.User, cfg.Passwd, cfg.Name, cfg.Port)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
	if err != nil {
		zap.S().Fatalf("database connection failed: %v", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		if cfg.MaxConn > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxConn)
		}
		if cfg.IdleConn > 0 {
			sqlDB.SetMaxIdleConns(cfg.IdleConn)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db
}

// checkSuper ensures a usable super admin account exists.
func (a *Application) checkSuper() {
	const superEmail = "admin@shopd.local"
	const defaultPassword = "shopd-admin"

	var admin domain.User
	err := a.gormDB.Where("email = ?", superEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, herr := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
		if herr != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(herr))
			return
		}
		if err := a.gormDB.Create(&domain.User{
			ID:           common.UUIDint64(),
			Email:        superEmail,
			PasswordHash: string(hash),
			Role:         domain.RoleAdmin,
			FullName:     "administrator",
			LastLogin:    time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account",
				zap.String("email", superEmail))
		}
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
	case !strings.EqualFold(admin.Role, domain.RoleAdmin):
		if err := a.gormDB.Model(&domain.User{}).Where("id = ?", admin.ID).
			Update("role", domain.RoleAdmin).Error; err != nil {
			zap.L().Error("failed to repair super admin role", zap.Error(err))
		} else {
			zap.L().Warn("repaired super admin role", zap.String("email", superEmail))
		}
	}
}

// checkRoles initializes the role reference rows.
func (a *Application) checkRoles() {
	defaultRoles := []domain.Role{
		{Name: domain.RoleAdmin, Remark: "full administrative access"},
		{Name: domain.RoleStaff, Remark: "order management access"},
		{Name: domain.RoleUser, Remark: "regular member"},
	}
	for _, role := range defaultRoles {
		var count int64
		a.gormDB.Model(&domain.Role{}).Where("name = ?", role.Name).Count(&count)
		if count == 0 {
			role.ID = common.UUIDint64()
			if err := a.gormDB.Create(&role).Error; err != nil {
				zap.L().Error("failed to create default role",
					zap.String("name", role.Name), zap.Error(err))
			}
		}
	}
}

// checkSettings seeds missing sys_config entries from the embedded
// schema definitions.
func (a *Application) checkSettings() {
	var schemasData ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &schemasData); err != nil {
		zap.L().Error("failed to load config schemas from JSON", zap.Error(err))
		return
	}

	for sortid, schema := range schemasData.Schemas {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}
		category := parts[0]
		name := parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)
		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}

// checkCatalog seeds a demo category and products on an empty catalog.
func (a *Application) checkCatalog() {
	var count int64
	a.gormDB.Model(&domain.Category{}).Count(&count)
	if count > 0 {
		return
	}

	category := domain.Category{ID: common.UUIDint64(), Name: "general"}
	if err := a.gormDB.Create(&category).Error; err != nil {
		zap.L().Error("failed to create default category", zap.Error(err))
		return
	}

	defaultProducts := []domain.Product{
		{Title: "demo-widget-basic", Price: decimal.NewFromFloat(9.99), Stock: 100},
		{Title: "demo-widget-pro", Price: decimal.NewFromFloat(24.50), Stock: 50},
		{Title: "demo-addon-support", Price: decimal.NewFromFloat(49.95), Stock: 200},
	}
	for _, p := range defaultProducts {
		p.ID = common.UUIDint64()
		p.CategoryID = category.ID
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default product",
				zap.String("title", p.Title), zap.Error(err))
		} else {
			zap.L().Info("initialized default product", zap.String("title", p.Title))
		}
	}
}
