// Package config loads process configuration from defaults, an optional
// YAML file, a .env file and MEAL_* environment variables, in rising priority.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

const (
	EnvPrefix      = "MEAL"
	configFileName = "mealledger"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	App      AppConfig         `mapstructure:"app"`
	HTTP     HTTPConfig        `mapstructure:"http"`
	Log      LogConfig         `mapstructure:"log"`
	Service  ServiceConfig     `mapstructure:"service"`
	Store    StoreConfig       `mapstructure:"store"`
	Prices   map[string]string `mapstructure:"prices"`
	Counters map[string]string `mapstructure:"counters"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type ServiceConfig struct {
	// Timezone is the IANA zone whose calendar defines a service day.
	Timezone string `mapstructure:"timezone"`
}

type StoreConfig struct {
	Backend       string        `mapstructure:"backend"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
}

// CounterLabel is a display name for a counter number.
type CounterLabel struct {
	ID    ledger.CounterID
	Label string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "meal-ledger")
	v.SetDefault("app.environment", "development")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("service.timezone", "UTC")
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.sqlite_path", "meals.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "meal")
	v.SetDefault("store.call_timeout", "3s")
	v.SetDefault("prices.morning", "0")
	v.SetDefault("prices.evening", "0")
	v.SetDefault("counters", map[string]string{
		"1": "Counter 1 (Morning)",
		"2": "Counter 2 (Evening)",
		"3": "Counter 3 (Evening)",
	})
}

// Load reads configuration. path names an explicit YAML file; when empty,
// mealledger.yml is looked up in . and /etc/mealledger and may be absent.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mealledger")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.AllowedOrigins = splitOrigins(cfg.HTTP.AllowedOrigins)
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	if _, err := ledger.LoadCalendar(c.Service.Timezone); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			errs = append(errs, errors.New("store.postgres_dsn is required for the postgres backend"))
		}
	case BackendRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Store.CallTimeout < 0 {
		errs = append(errs, errors.New("store.call_timeout must not be negative"))
	}

	if _, err := c.ParsedPrices(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CounterLabels(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c Config) Calendar() (ledger.Calendar, error) {
	return ledger.LoadCalendar(c.Service.Timezone)
}

func (c Config) ParsedPrices() (ledger.Prices, error) {
	return ledger.ParsePrices(c.Prices)
}

// CounterLabels returns the configured labels ordered by counter number.
func (c Config) CounterLabels() ([]CounterLabel, error) {
	labels := make([]CounterLabel, 0, len(c.Counters))
	for raw, label := range c.Counters {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !ledger.CounterID(n).Valid() {
			return nil, fmt.Errorf("counters: %q is not a positive counter number", raw)
		}
		labels = append(labels, CounterLabel{ID: ledger.CounterID(n), Label: label})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].ID < labels[j].ID })
	return labels, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
