package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Notification drivers.
const (
	NotifyRedis = "redis"
	NotifyKafka = "kafka"
	NotifyNone  = "none"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL    string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper   string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	MaxUploadBytes int64  `default:"10485760" usage:"Maximum size of a price feed upload" flag:"max-upload-bytes"`
	Notify         NotifyConfig
	Graceful       GracefulConfig
}

// NotifyConfig selects where order-created events are published.
type NotifyConfig struct {
	Driver       string   `default:"redis" usage:"Notification driver: redis, kafka or none"`
	RedisURL     string   `usage:"Redis URL (SHOP_NOTIFY_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	Channel      string   `default:"order_channel" usage:"Redis pub/sub channel"`
	KafkaBrokers []string `usage:"Kafka broker addresses" flag:"kafka-brokers"`
	KafkaTopic   string   `default:"order_channel" usage:"Kafka topic" flag:"kafka-topic"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files
// and flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config

	base.EnvPrefix = "SHOP"
	base.Files = []string{"config.yaml", "/etc/shop/config.yaml"}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	switch c.Notify.Driver {
	case NotifyRedis:
		if c.Notify.RedisURL == "" {
			return errors.New("redis URL is required for the redis notify driver: set SHOP_NOTIFY_REDIS_URL or REDIS_URL")
		}
	case NotifyKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			return errors.New("kafka brokers are required for the kafka notify driver")
		}
	case NotifyNone:
	default:
		return errors.Errorf("unknown notify driver %q", c.Notify.Driver)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL, REDIS_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Notify.RedisURL == "" {
		c.Notify.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	c.Notify.Driver = strings.ToLower(strings.TrimSpace(c.Notify.Driver))
}
