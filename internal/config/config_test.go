package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://choicecert.snipeit.ai/", cfg.Generator.CertificateURL)
	assert.Equal(t, "https://singupapi-ffnfpldenq-uc.a.run.app/", cfg.Generator.CredentialURL)
	assert.Equal(t, 30, cfg.Generator.TimeoutSecs)
	assert.Equal(t, "Your Certificate", cfg.Mail.Subject)
	assert.Equal(t, "Your Swayam Credentials", cfg.Mail.CredentialsSubject)
	assert.Equal(t, DefaultTemplate, cfg.Mail.Template)
	assert.Equal(t, "http://localhost:8080", cfg.Mail.RelayURL)
	assert.Equal(t, "http://localhost:8080", cfg.Proxy.BaseURL)
	assert.Equal(t, "certmill.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
generator:
  certificate_url: https://certs.example.com/
  timeout_secs: 10
mail:
  subject: Congratulations!
  token_path: /tmp/tokens.json
store:
  path: /tmp/history.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://certs.example.com/", cfg.Generator.CertificateURL)
	assert.Equal(t, 10, cfg.Generator.TimeoutSecs)
	assert.Equal(t, "Congratulations!", cfg.Mail.Subject)
	assert.Equal(t, "/tmp/tokens.json", cfg.Mail.TokenPath)
	assert.Equal(t, "/tmp/history.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, "https://singupapi-ffnfpldenq-uc.a.run.app/", cfg.Generator.CredentialURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  path: from-file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("CERTMILL_STORE_PATH", "from-env.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Store.Path)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0644))

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NotNil(t, zap.L())
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
}
