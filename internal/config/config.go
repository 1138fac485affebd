/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	TokenTTLHours          int    `mapstructure:"TOKEN_TTL_HOURS"`
	InitialBalance         string `mapstructure:"INITIAL_BALANCE"`
	TreasuryProvisionCode  string `mapstructure:"TREASURY_PROVISION_CODE"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	LedgerEventExchange    string `mapstructure:"LEDGER_EVENT_EXCHANGE"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	SendRateLimitPerMinute int    `mapstructure:"SEND_RATE_LIMIT_PER_MINUTE"`
	IntegrityAuditSchedule string `mapstructure:"INTEGRITY_AUDIT_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 168)
	viper.SetDefault("INITIAL_BALANCE", "100")
	viper.SetDefault("LEDGER_EVENT_EXCHANGE", "aircoin.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "aircoin:rate_limit")
	viper.SetDefault("SEND_RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("INTEGRITY_AUDIT_SCHEDULE", "@hourly")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_HOURS")
	_ = viper.BindEnv("INITIAL_BALANCE")
	_ = viper.BindEnv("TREASURY_PROVISION_CODE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("LEDGER_EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("SEND_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("INTEGRITY_AUDIT_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platforms like Heroku and Railway inject the listen port as PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.InitialBalance = strings.TrimSpace(config.InitialBalance)
	if config.InitialBalance == "" {
		config.InitialBalance = "100"
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "aircoin:rate_limit"
	}

	if config.TokenTTLHours <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive token ttl configured; using default\" ttl_hours=%d", config.TokenTTLHours)
		config.TokenTTLHours = 168
	}
	if config.SendRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative send rate limit configured; disabling\" limit=%d", config.SendRateLimitPerMinute)
		config.SendRateLimitPerMinute = 0
	}

	return
}
