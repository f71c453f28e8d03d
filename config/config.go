package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	ShareTokenSecret  string `mapstructure:"SHARE_TOKEN_SECRET"`
	ShareBaseURL      string `mapstructure:"SHARE_BASE_URL"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AccountsAPIURL    string `mapstructure:"ACCOUNTS_API_URL"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisTrackingDB  int    `mapstructure:"REDIS_TRACKING_DB"`
	RedisTaskQueueDB int    `mapstructure:"REDIS_TASK_QUEUE_DB"`

	// Tracking and welfare-monitor knobs. All durations are in minutes.
	MinTrackableMinutes     int    `mapstructure:"TRACKING_MIN_TRACKABLE_MINUTES"`
	CheckInIntervalMinutes  int    `mapstructure:"TRACKING_CHECKIN_INTERVAL_MINUTES"`
	ReminderTimeoutMinutes  int    `mapstructure:"TRACKING_REMINDER_TIMEOUT_MINUTES"`
	EscalationThreshold     int    `mapstructure:"TRACKING_ESCALATION_THRESHOLD"`
	MaxTrustedShares        int    `mapstructure:"TRACKING_MAX_TRUSTED_SHARES"`
	SessionTTLHours         int    `mapstructure:"TRACKING_SESSION_TTL_HOURS"`
	DefaultPhoneCountryCode string `mapstructure:"TRACKING_DEFAULT_COUNTRY_CODE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_TRACKING_DB", 1)
	viper.SetDefault("REDIS_TASK_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("SHARE_BASE_URL", "https://track.homecare.app/v")
	viper.SetDefault("ACCOUNTS_API_URL", "http://localhost:8081")

	viper.SetDefault("TRACKING_MIN_TRACKABLE_MINUTES", 60)
	viper.SetDefault("TRACKING_CHECKIN_INTERVAL_MINUTES", 30)
	viper.SetDefault("TRACKING_REMINDER_TIMEOUT_MINUTES", 5)
	viper.SetDefault("TRACKING_ESCALATION_THRESHOLD", 3)
	viper.SetDefault("TRACKING_MAX_TRUSTED_SHARES", 3)
	viper.SetDefault("TRACKING_SESSION_TTL_HOURS", 12)
	viper.SetDefault("TRACKING_DEFAULT_COUNTRY_CODE", "+254")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
