package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisDedupeDB int    `mapstructure:"redis_dedupe_db"`

	CacheType string `mapstructure:"cache_type"`
	BBoltPath string `mapstructure:"bbolt_path"`

	DedupeTTLHours int           `mapstructure:"redis_dedupe_expiry_hours"`
	DedupeTTL      time.Duration `mapstructure:"-"`

	ScrapeIntervalSeconds int64         `mapstructure:"scraper_interval"`
	ScrapeInterval        time.Duration `mapstructure:"-"`
	DaysAhead             int           `mapstructure:"scraper_days_ahead"`

	VenueSource   string `mapstructure:"venue_source"`
	VenuesFile    string `mapstructure:"venues_file"`
	NotifiersFile string `mapstructure:"notifiers_file"`
	QueueName     string `mapstructure:"notification_queue"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "courtwatch-scraper")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "tennis_booking")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_dedupe_db", 1)

	v.SetDefault("cache_type", "redis")
	v.SetDefault("bbolt_path", "./data/dedupe.db")
	v.SetDefault("redis_dedupe_expiry_hours", 48)

	v.SetDefault("scraper_interval", 600) // seconds
	v.SetDefault("scraper_days_ahead", 7)

	v.SetDefault("venue_source", "mongo")
	v.SetDefault("venues_file", "./configs/venues.yaml")
	v.SetDefault("notifiers_file", "./configs/notifiers.yaml")
	v.SetDefault("notification_queue", "court_slots")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.ScrapeIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid scraper_interval (must be positive seconds)")
	}
	cfg.ScrapeInterval = time.Duration(cfg.ScrapeIntervalSeconds) * time.Second

	if cfg.DedupeTTLHours <= 0 {
		return nil, fmt.Errorf("invalid redis_dedupe_expiry_hours (must be positive hours)")
	}
	cfg.DedupeTTL = time.Duration(cfg.DedupeTTLHours) * time.Hour

	if cfg.DaysAhead <= 0 {
		return nil, fmt.Errorf("invalid scraper_days_ahead (must be positive)")
	}

	return &cfg, nil
}
