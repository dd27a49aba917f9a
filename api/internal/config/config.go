package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "MASHUB"

type Config struct {
	ProdEnv bool `envconfig:"PROD_ENV"`

	Api struct {
		Addr         string `envconfig:"ADDR" default:":8080" validate:"required"`
		MaxConns     int    `envconfig:"MAX_CONNS" default:"512" validate:"gte=0"`      // 0 - unlimited
		MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"1048576" validate:"gt=0"`
	} `envconfig:"API"`

	Webhook struct {
		// shared MasChain secret. there is no fallback value
		Secret           string        `envconfig:"SECRET" required:"true" validate:"required"`
		SignatureHeader  string        `envconfig:"SIGNATURE_HEADER" default:"X-Maschain-Signature" validate:"required"`
		TimestampHeader  string        `envconfig:"TIMESTAMP_HEADER" default:"X-Maschain-Timestamp"`
		Tolerance        time.Duration `envconfig:"TOLERANCE" default:"5m" validate:"gt=0"`
		RequireTimestamp bool          `envconfig:"REQUIRE_TIMESTAMP" default:"true"`
		RateLimit        int           `envconfig:"RATE_LIMIT" default:"600" validate:"gte=0"` // per ip per minute, 0 - off
	} `envconfig:"WEBHOOK"`

	Retry struct {
		MaxRetries int           `envconfig:"MAX_RETRIES" default:"5" validate:"gte=1"`
		BaseDelay  time.Duration `envconfig:"BASE_DELAY" default:"1s" validate:"gt=0"`
		Multiplier float64       `envconfig:"MULTIPLIER" default:"2" validate:"gte=1"`
		MaxDelay   time.Duration `envconfig:"MAX_DELAY" default:"5m" validate:"gtefield=BaseDelay"`
		Interval   time.Duration `envconfig:"INTERVAL" default:"60s" validate:"gt=0"`
		BatchSize  int           `envconfig:"BATCH_SIZE" default:"10" validate:"gte=1"`
		JobTimeout time.Duration `envconfig:"JOB_TIMEOUT" default:"30s" validate:"gt=0"`
		Lease      time.Duration `envconfig:"LEASE" default:"6m" validate:"gt=0"` // must outlast a full batch
		Autostart  bool          `envconfig:"AUTOSTART" default:"true"`
	} `envconfig:"RETRY"`

	DB struct {
		Driver string `envconfig:"DRIVER" default:"postgres" validate:"oneof=postgres mysql sqlite"`
		Dsn    string `envconfig:"DSN" validate:"required"`
	} `envconfig:"DB"`

	Locker struct {
		Backend string `envconfig:"BACKEND" default:"memory" validate:"oneof=memory redis postgres"`
	} `envconfig:"LOCKER"`

	Redis struct {
		Addr     string `envconfig:"ADDR"`
		Password string `envconfig:"PASSWORD"`
		DB       int    `envconfig:"DB" default:"0"`
	} `envconfig:"REDIS"`

	Nats struct {
		Url     string `envconfig:"URL"` // empty - notifications off
		Subject string `envconfig:"SUBJECT" default:"mashub.webhooks.processed"`
		Stream  string `envconfig:"STREAM" default:"mashub_webhooks"`
	} `envconfig:"NATS"`

	Archive struct {
		Bucket    string `envconfig:"BUCKET"` // empty - archive off
		Region    string `envconfig:"REGION" default:"us-east-1"`
		Endpoint  string `envconfig:"ENDPOINT"`
		AccessKey string `envconfig:"ACCESS_KEY"`
		SecretKey string `envconfig:"SECRET_KEY"`
		Prefix    string `envconfig:"PREFIX" default:"dead-letters"`
	} `envconfig:"ARCHIVE"`

	Admin struct {
		AccessKey string `envconfig:"ACCESS_KEY"` // empty - admin routes are not registered
	} `envconfig:"ADMIN"`

	Grpc struct {
		HealthAddr string `envconfig:"HEALTH_ADDR"`
	} `envconfig:"GRPC"`
}

// Load reads an optional .env file (ENVPATH) and then the environment.
func Load() (*Config, error) {
	if path := os.Getenv("ENVPATH"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("can't load env file %s: %w", path, err)
		}
	}
	return ReadConfig()
}

func ReadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, err
	}

	config.Webhook.Secret = strings.TrimSpace(config.Webhook.Secret)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// MustReadConfig is for binaries: a bad config is fatal.
func MustReadConfig() *Config {
	config, err := Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	return config
}

func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config field %s: failed '%s' check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if batch := time.Duration(c.Retry.BatchSize) * c.Retry.JobTimeout; c.Retry.Lease <= batch {
		return fmt.Errorf("%s_RETRY_LEASE (%s) must be longer than BATCH_SIZE*JOB_TIMEOUT (%s)", EnvPrefix, c.Retry.Lease, batch)
	}
	if c.Locker.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("locker backend redis requires %s_REDIS_ADDR", EnvPrefix)
	}
	if c.Locker.Backend == "postgres" && c.DB.Driver != "postgres" {
		return fmt.Errorf("locker backend postgres requires the postgres db driver")
	}
	return nil
}
