package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leadgen.db", cfg.Store.Path)
	assert.Equal(t, "https://api.apify.com/v2", cfg.Apify.BaseURL)
	assert.Equal(t, "apify~google-search-scraper", cfg.Apify.ActorID)
	assert.Equal(t, 5, cfg.Apify.ResultsPerPage)
	assert.Equal(t, 1, cfg.Apify.MaxPages)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Equal(t, "openai", cfg.Batch.Provider)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtmp(t)

	yamlDoc := `
store:
  driver: postgres
  database_url: postgres://localhost/leadgen
apify:
  results_per_page: 10
batch:
  concurrency: 4
  provider: claude
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlDoc), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leadgen", cfg.Store.DatabaseURL)
	assert.Equal(t, 10, cfg.Apify.ResultsPerPage)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "claude", cfg.Batch.Provider)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
}

func TestLoadFromEnv(t *testing.T) {
	chtmp(t)

	t.Setenv("LEADGEN_APIFY_TOKEN", "tok-env")
	t.Setenv("LEADGEN_OPENAI_KEY", "key-env")
	t.Setenv("LEADGEN_CLAUDE_KEY", "claude-env")
	t.Setenv("LEADGEN_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tok-env", cfg.Apify.Token)
	assert.Equal(t, "key-env", cfg.OpenAI.Key)
	assert.Equal(t, "claude-env", cfg.Claude.Key)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadColumnMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Company\ncity: Town\ncountry: Land\ntype: Sector\n"), 0o644))

	mapping, err := LoadColumnMapping(path)
	require.NoError(t, err)
	assert.Equal(t, "Company", mapping.Name)
	assert.Equal(t, "Town", mapping.City)
	assert.Equal(t, "Land", mapping.Country)
	assert.Equal(t, "Sector", mapping.Type)
}

func TestLoadColumnMapping_MissingNameColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("city: Town\n"), 0o644))

	_, err := LoadColumnMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company column")
}

func TestLoadColumnMapping_MissingFile(t *testing.T) {
	_, err := LoadColumnMapping(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
}

func TestInitLogger_BadLevel(t *testing.T) {
	require.Error(t, InitLogger(LogConfig{Level: "verbose"}))
}
