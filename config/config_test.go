package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/config"
	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.Store.CallTimeout)
	assert.Equal(t, "UTC", cfg.Service.Timezone)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)

	labels, err := cfg.CounterLabels()
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, ledger.CounterID(1), labels[0].ID)
	assert.Equal(t, "Counter 1 (Morning)", labels[0].Label)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	// GIVEN: MEAL_* variables for a redis deployment
	t.Setenv("MEAL_HTTP_PORT", "9090")
	t.Setenv("MEAL_STORE_BACKEND", "Redis")
	t.Setenv("MEAL_STORE_REDIS_ADDR", "localhost:6379")
	t.Setenv("MEAL_HTTP_ALLOWED_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("MEAL_PRICES_MORNING", "12.50")

	// WHEN: Loading
	cfg, err := config.Load("")

	// THEN: The environment wins over defaults
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.HTTP.AllowedOrigins)

	prices, err := cfg.ParsedPrices()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(prices.Of(ledger.MealMorning)))
}

func TestLoad_File(t *testing.T) {
	// GIVEN: A YAML file for a postgres deployment in India
	path := filepath.Join(t.TempDir(), "mealledger.yml")
	yaml := `
service:
  timezone: Asia/Kolkata
store:
  backend: postgres
  postgres_dsn: postgres://meals@db/meals
  call_timeout: 500ms
prices:
  morning: "30"
  evening: "45.5"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	// WHEN: Loading it explicitly
	cfg, err := config.Load(path)

	// THEN: File values are applied
	require.NoError(t, err)
	assert.Equal(t, config.BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.CallTimeout)
	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", cal.Location().String())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func validConfig() config.Config {
	return config.Config{
		HTTP:    config.HTTPConfig{Port: 8080},
		Service: config.ServiceConfig{Timezone: "UTC"},
		Store:   config.StoreConfig{Backend: config.BackendMemory},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"valid memory", func(c *config.Config) {}, true},
		{"bad port", func(c *config.Config) { c.HTTP.Port = 0 }, false},
		{"bad timezone", func(c *config.Config) { c.Service.Timezone = "Nowhere/Land" }, false},
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "mongo" }, false},
		{"sqlite without path", func(c *config.Config) { c.Store.Backend = config.BackendSQLite }, false},
		{"postgres without dsn", func(c *config.Config) { c.Store.Backend = config.BackendPostgres }, false},
		{"redis without addr", func(c *config.Config) { c.Store.Backend = config.BackendRedis }, false},
		{"negative timeout", func(c *config.Config) { c.Store.CallTimeout = -time.Second }, false},
		{"bad price", func(c *config.Config) { c.Prices = map[string]string{"morning": "free"} }, false},
		{"price for unknown window", func(c *config.Config) { c.Prices = map[string]string{"lunch": "1"} }, false},
		{"bad counter", func(c *config.Config) { c.Counters = map[string]string{"zero": "x"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.IsProduction())

	cfg.App.Environment = "Production"
	assert.True(t, cfg.IsProduction())
}
