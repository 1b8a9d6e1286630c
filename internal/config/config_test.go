package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 8084, cfg.Notifier.Port)
	assert.Equal(t, "*/15 * * * *", cfg.Pipeline.Cron)
	assert.Equal(t, 1000, cfg.Pipeline.BackfillBatchSize)
	assert.Len(t, cfg.Pipeline.StuckChecks, 2)
	assert.Equal(t, "payment", cfg.Pipeline.StuckChecks[0].Class)

	limit, err := cfg.Pipeline.MaxWeeklyBenefitCapAmount()
	require.NoError(t, err)
	assert.True(t, limit.Equal(decimal.RequireFromString("850")))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claimflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://file/claimflow
pipeline:
  max_weekly_benefit_cap: "900.00"
  steps: [MaxWeeklyBenefitStep]
`), 0o600))

	t.Setenv("DB_URL", "postgres://env/claimflow")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/claimflow", cfg.Database.URL)
	assert.Equal(t, []string{"MaxWeeklyBenefitStep"}, cfg.Pipeline.Steps)
	assert.Equal(t, "900.00", cfg.Pipeline.MaxWeeklyBenefitCap)
}

func TestLoad_InvalidCap(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MAX_WEEKLY_BENEFIT_CAP", "lots")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
