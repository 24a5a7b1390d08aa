package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should fall back to defaults when file is missing", func(t *testing.T) {
		// when
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.NoError(t, err)
		assert.Equal(t, ":8181", cfg.Listen)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.False(t, cfg.Budget.RefreshOnRead)
		assert.Empty(t, cfg.Admin.Username)
	})

	t.Run("should layer file and environment over defaults", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := "db:\n  host: db.internal\n  port: 6543\nadmin:\n  username: root\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		t.Setenv("ORCAUST_DB_PORT", "7000")
		t.Setenv("ORCAUST_ADMIN_PASSWORD", "s3cret")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 7000, cfg.Database.Port)
		assert.Equal(t, "root", cfg.Admin.Username)
		assert.Equal(t, "s3cret", cfg.Admin.Password)
		assert.Equal(t, "orcaust", cfg.Database.Name)
	})
}
