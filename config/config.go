package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion   string `mapstructure:"GENERAL_VERSION"`
	Environment      string `mapstructure:"ENVIRONMENT"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	ServerPort       int    `mapstructure:"SERVER_PORT"`
	CorsAllowOrigins string `mapstructure:"CORS_ALLOW_ORIGINS"`

	DatabaseDbPath       string `mapstructure:"DB_PATH"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`

	SessionTTLHours int    `mapstructure:"SESSION_TTL_HOURS"`
	SyncAPIKey      string `mapstructure:"SYNC_API_KEY"`

	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	KVSPlaybackMode    string `mapstructure:"KVS_PLAYBACK_MODE"`

	DisplayTimezone string `mapstructure:"DISPLAY_TIMEZONE"`

	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`
}

// defaults doubles as the key registry: viper only unmarshals keys it knows
// about, so every env key needs an entry here.
var defaults = map[string]any{
	"GENERAL_VERSION":       "dev",
	"ENVIRONMENT":           "development",
	"LOG_LEVEL":             "info",
	"SERVER_PORT":           8288,
	"CORS_ALLOW_ORIGINS":    "*",
	"DB_PATH":               "data/fitadmin.db",
	"DB_CACHE_ADDRESS":      "",
	"DB_CACHE_PORT":         6379,
	"SESSION_TTL_HOURS":     12,
	"SYNC_API_KEY":          "",
	"AWS_ACCESS_KEY_ID":     "",
	"AWS_SECRET_ACCESS_KEY": "",
	"AWS_REGION":            "ap-northeast-1",
	"KVS_PLAYBACK_MODE":     "ON_DEMAND",
	"DISPLAY_TIMEZONE":      "Asia/Taipei",
	"SEED_ADMIN_EMAIL":      "",
	"SEED_ADMIN_PASSWORD":   "",
}

func InitConfig() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	envFile := os.Getenv("FITADMIN_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	if c.ServerPort <= 0 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.ServerPort)
	}
	if c.DatabaseDbPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("invalid SESSION_TTL_HOURS %d", c.SessionTTLHours)
	}
	switch c.KVSPlaybackMode {
	case "ON_DEMAND", "LIVE_REPLAY":
	default:
		return fmt.Errorf("invalid KVS_PLAYBACK_MODE %q", c.KVSPlaybackMode)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	return nil
}

// Location is where dashboard dates are bucketed. Empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.DisplayTimezone)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
