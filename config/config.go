package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"` // hours
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig `yaml:"system" json:"system"`
	Web      WebConfig `yaml:"web" json:"web"`
	Database DBConfig  `yaml:"database" json:"database"`
	Logger   LogConfig `yaml:"logger" json:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "shopd",
		Location: "Asia/Taipei",
		Workdir:  "/var/shopd",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		Secret:    "9b6de5cc-shopd-1816-b712-7c1c4d212ab2",
		JwtExpire: 24,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "shopd",
		User:     "postgres",
		Passwd:   "myshop",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/shopd/shopd.log",
	},
}

func setEnvValue(name string, val *string) {
	if evalue := os.Getenv(name); evalue != "" {
		*val = evalue
	}
}

func setEnvInt(name string, val *int) {
	if evalue := os.Getenv(name); evalue != "" {
		if ivalue, err := strconv.Atoi(evalue); err == nil {
			*val = ivalue
		}
	}
}

func setEnvBool(name string, val *bool) {
	if evalue := os.Getenv(name); evalue != "" {
		if bvalue, err := strconv.ParseBool(evalue); err == nil {
			*val = bvalue
		}
	}
}

// LoadConfig loads the yaml configuration file and applies SHOPD_*
// environment overrides. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	setEnvValue("SHOPD_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvBool("SHOPD_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("SHOPD_WEB_HOST", &cfg.Web.Host)
	setEnvInt("SHOPD_WEB_PORT", &cfg.Web.Port)
	setEnvValue("SHOPD_WEB_SECRET", &cfg.Web.Secret)
	setEnvInt("SHOPD_WEB_JWT_EXPIRE", &cfg.Web.JwtExpire)

	setEnvValue("SHOPD_DB_TYPE", &cfg.Database.Type)
	setEnvValue("SHOPD_DB_HOST", &cfg.Database.Host)
	setEnvInt("SHOPD_DB_PORT", &cfg.Database.Port)
	setEnvValue("SHOPD_DB_NAME", &cfg.Database.Name)
	setEnvValue("SHOPD_DB_USER", &cfg.Database.User)
	setEnvValue("SHOPD_DB_PWD", &cfg.Database.Passwd)

	setEnvValue("SHOPD_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBool("SHOPD_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("SHOPD_LOGGER_FILENAME", &cfg.Logger.Filename)

	return &cfg
}

// InitDirs creates the working directories used by the process.
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "logs"), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "metrics"), 0755)
}
