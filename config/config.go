package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	DB           Database     `mapstructure:"database"`
	API          API          `mapstructure:"api"`
	Cache        Cache        `mapstructure:"cache"`
	YahooFinance YahooFinance `mapstructure:"yahoo_finance"`
	Backtest     Backtest     `mapstructure:"backtest"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
	MigrationsPath  string `mapstructure:"migrations_path"`
}

type API struct {
	Port               int           `mapstructure:"port"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	RateLimitExpireIn  time.Duration `mapstructure:"rate_limit_expire_in"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	DefaultListLimit   int           `mapstructure:"default_list_limit"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type YahooFinance struct {
	Enabled             bool          `mapstructure:"enabled"`
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RetryCount          int           `mapstructure:"retry_count"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	SymbolSuffix        string        `mapstructure:"symbol_suffix"`
}

type Backtest struct {
	MaxConcurrentRuns    int           `mapstructure:"max_concurrent_runs"`
	LoadConcurrency      int           `mapstructure:"load_concurrency"`
	FailureMessageMaxLen int           `mapstructure:"failure_message_max_len"`
	SeriesCacheTTL       time.Duration `mapstructure:"series_cache_ttl"`
	ReuseCompletedRuns   bool          `mapstructure:"reuse_completed_runs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "backtest")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_level", "Warn")
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.rate_limit_per_second", 10)
	v.SetDefault("api.rate_limit_burst", 20)
	v.SetDefault("api.rate_limit_expire_in", 3*time.Minute)
	v.SetDefault("api.shutdown_timeout", 10*time.Second)
	v.SetDefault("api.default_list_limit", 50)
	v.SetDefault("cache.default_expiration", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)
	v.SetDefault("yahoo_finance.enabled", false)
	v.SetDefault("yahoo_finance.symbol_suffix", "")
	v.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo_finance.timeout", 15*time.Second)
	v.SetDefault("yahoo_finance.retry_count", 2)
	v.SetDefault("yahoo_finance.max_request_per_minute", 60)
	v.SetDefault("backtest.max_concurrent_runs", 4)
	v.SetDefault("backtest.load_concurrency", 4)
	v.SetDefault("backtest.failure_message_max_len", 500)
	v.SetDefault("backtest.series_cache_ttl", 15*time.Minute)
	v.SetDefault("backtest.reuse_completed_runs", true)
}

// Load reads config.yaml from the working directory, overlaid with the
// environment (dots become underscores, e.g. DATABASE_HOST). A .env file is
// loaded into the environment first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
