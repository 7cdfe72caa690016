package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, DefaultAppConfig.Web.Port, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "shopd.yml")
	require.NoError(t, os.WriteFile(cfile, []byte("web:\n  port: 9090\n"), 0644))

	t.Setenv("SHOPD_DB_TYPE", "sqlite")
	t.Setenv("SHOPD_WEB_PORT", "9191")

	cfg := LoadConfig(cfile)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	// Environment wins over the file.
	assert.Equal(t, 9191, cfg.Web.Port)
}
