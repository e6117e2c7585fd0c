package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Fleet    FleetConfig
	Sweep    SweepConfig
	Telegram TelegramConfig
	Billing  BillingConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
}

type FleetConfig struct {
	TemplateDir  string
	BotsDir      string
	DockerBinary string
	OpsPerSecond float64
}

type SweepConfig struct {
	Interval    time.Duration
	GracePeriod time.Duration
	LeaseTTL    time.Duration
}

type TelegramConfig struct {
	APIBaseURL string
}

type BillingConfig struct {
	BaseURL       string
	ShopID        string
	SecretKey     string
	ReturnURL     string
	WebhookSecret string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("BOTFLEET")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("fleet.dockerbinary", "docker")
	viper.SetDefault("fleet.opspersecond", 2.0)
	viper.SetDefault("sweep.interval", "10m")
	viper.SetDefault("sweep.graceperiod", "72h")
	viper.SetDefault("sweep.leasettl", "5m")
	viper.SetDefault("telegram.apibaseurl", "https://api.telegram.org")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if key := os.Getenv("BILLING_SECRET_KEY"); key != "" {
		cfg.Billing.SecretKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on a missing required key instead of letting zero
// values leak into the orchestrator.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if c.Fleet.TemplateDir == "" {
		return fmt.Errorf("config: fleet.templatedir is required")
	}
	if c.Fleet.BotsDir == "" {
		return fmt.Errorf("config: fleet.botsdir is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwtsecret is required")
	}
	if c.Sweep.GracePeriod <= 0 {
		return fmt.Errorf("config: sweep.graceperiod must be positive")
	}
	return nil
}
