package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg := fromViper(newViper())

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, int64(1), cfg.Scheduler.Seed)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.GenerateTimeout)
	assert.InDelta(t, 1.0, cfg.Scheduler.SessionHours, 0.0001)
	assert.Equal(t, CatalogSourceCSV, cfg.Scheduler.CatalogSource)
	assert.Equal(t, 10*time.Minute, cfg.Views.CacheTTL)
	assert.True(t, cfg.Database.RunMigrations)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_SEED", "99")
	t.Setenv("SCHEDULER_CATALOG_SOURCE", "Postgres")
	t.Setenv("SCHEDULER_SESSION_HOURS", "-2")
	t.Setenv("SCHEDULER_GENERATE_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("VIEW_CACHE_TTL", "90s")

	cfg := fromViper(newViper())

	assert.Equal(t, int64(99), cfg.Scheduler.Seed)
	assert.Equal(t, CatalogSourcePostgres, cfg.Scheduler.CatalogSource)
	assert.InDelta(t, 1.0, cfg.Scheduler.SessionHours, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.GenerateTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.Views.CacheTTL)
}

func TestUnknownCatalogSourceFallsBackToCSV(t *testing.T) {
	t.Setenv("SCHEDULER_CATALOG_SOURCE", "mongo")

	cfg := fromViper(newViper())
	assert.Equal(t, CatalogSourceCSV, cfg.Scheduler.CatalogSource)
}
