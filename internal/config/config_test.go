package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "suggest.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ru", cfg.Pipeline.Language)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, "ru", cfg.Geo.Resolver.Language)
	assert.True(t, cfg.Geo.Resolver.GrammarCheck)
	assert.True(t, cfg.Geo.Resolver.AllowSeedCityPairs)
	assert.InDelta(t, 0.62, cfg.Semantic.ValidThreshold, 0.001)
	assert.InDelta(t, 0.35, cfg.Semantic.TrashThreshold, 0.001)
	assert.Equal(t, "conservative", cfg.Semantic.Policy)
	assert.Equal(t, 64, cfg.Semantic.BatchSize)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, 3, cfg.Embeddings.MaxRetries)
	assert.False(t, cfg.Judge.Enabled)
	assert.NotEmpty(t, cfg.Judge.Model)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/suggest
log:
  level: debug
  format: console
server:
  port: 9090
semantic:
  policy: weighted
pipeline:
  workers: 16
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "weighted", cfg.Semantic.Policy)
	assert.Equal(t, 16, cfg.Pipeline.Workers)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.62, cfg.Semantic.ValidThreshold, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SUGGEST_STORE_DRIVER", "postgres")
	t.Setenv("SUGGEST_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("SUGGEST_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults mirrors Load's defaults for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "suggest.db"
	cfg.Pipeline.Workers = 8
	cfg.Semantic.ValidThreshold = 0.62
	cfg.Semantic.TrashThreshold = 0.35
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateClassify_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("classify"))
}

func TestValidatePostgres_RequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("classify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/suggest"
	assert.NoError(t, cfg.Validate("classify"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("classify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateWorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.Workers = 0
	err := cfg.Validate("classify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.workers must be between 1 and 64")

	cfg.Pipeline.Workers = 65
	assert.Error(t, cfg.Validate("classify"))

	cfg.Pipeline.Workers = 64
	assert.NoError(t, cfg.Validate("classify"))
}

func TestValidateSemanticThresholds(t *testing.T) {
	cfg := validDefaults()
	cfg.Semantic.ValidThreshold = 0.3
	cfg.Semantic.TrashThreshold = 0.4

	err := cfg.Validate("classify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "semantic.valid_threshold must exceed")
}

func TestValidateJudgeNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Judge.Enabled = true

	err := cfg.Validate("classify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "judge.key is required")

	cfg.Judge.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("classify"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
