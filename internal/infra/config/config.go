package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"rentride/internal/domain/pricing"
)

var (
	ErrInvalidExponent = errors.New("config: CURRENCY_EXPONENT must be between 0 and 4")
	ErrMissingCurrency = errors.New("config: CURRENCY is required")
)

type Mode string

const (
	// ModeMemory serves bookings from fixtures with an in-process event bus.
	ModeMemory Mode = "memory"
	// ModeRemote talks to the bookings backend over REST and Kafka.
	ModeRemote Mode = "remote"
)

// Config aggregates application configuration. Values come from the YAML file
// named by CONFIG_FILE, when set, and environment variables override it.
type Config struct {
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"http_addr"`

	GatewayBaseURL string        `yaml:"gateway_base_url"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
	GatewayToken   string        `yaml:"gateway_token"`

	KafkaBrokers     []string `yaml:"kafka_brokers"`
	KafkaTopicPrefix string   `yaml:"kafka_topic_prefix"`
	KafkaGroupID     string   `yaml:"kafka_group_id"`

	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	ResyncSchedule string        `yaml:"resync_schedule"`
	ResyncTimeout  time.Duration `yaml:"resync_timeout"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`

	PaymentReturnURL   string                     `yaml:"payment_return_url"`
	Currency           string                     `yaml:"currency"`
	CurrencyExponent   int32                      `yaml:"currency_exponent"`
	RentalLengthPolicy pricing.RentalLengthPolicy `yaml:"rental_length_policy"`

	FixturesPath string `yaml:"fixtures_path"`
}

func Defaults() Config {
	return Config{
		Env:                "dev",
		HTTPAddr:           ":8080",
		GatewayTimeout:     10 * time.Second,
		KafkaGroupID:       "rentride",
		MongoDB:            "rentride",
		ResyncSchedule:     "@every 10m",
		ResyncTimeout:      15 * time.Second,
		IdempotencyTTL:     168 * time.Hour,
		PaymentReturnURL:   "http://localhost:5173/bookings",
		Currency:           "INR",
		CurrencyExponent:   2,
		RentalLengthPolicy: pricing.PolicyReject,
		FixturesPath:       "data/bookings.json",
	}
}

// Load parses configuration from CONFIG_FILE and the current environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.overrideWithEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.GatewayBaseURL, "GATEWAY_BASE_URL")
	setString(&c.GatewayToken, "GATEWAY_TOKEN")
	setString(&c.KafkaTopicPrefix, "KAFKA_TOPIC_PREFIX")
	setString(&c.KafkaGroupID, "KAFKA_GROUP_ID")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDB, "MONGO_DB")
	setString(&c.ResyncSchedule, "RESYNC_SCHEDULE")
	setString(&c.PaymentReturnURL, "PAYMENT_RETURN_URL")
	setString(&c.Currency, "CURRENCY")
	setString(&c.FixturesPath, "BOOKING_FIXTURES")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.KafkaBrokers = splitList(brokers)
	}
	if raw := os.Getenv("RENTAL_LENGTH_POLICY"); raw != "" {
		c.RentalLengthPolicy = pricing.RentalLengthPolicy(raw)
	}
	if raw := os.Getenv("CURRENCY_EXPONENT"); raw != "" {
		exp, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid CURRENCY_EXPONENT: %w", err)
		}
		c.CurrencyExponent = int32(exp)
	}

	for key, dst := range map[string]*time.Duration{
		"GATEWAY_TIMEOUT": &c.GatewayTimeout,
		"RESYNC_TIMEOUT":  &c.ResyncTimeout,
		"IDEMP_TTL":       &c.IdempotencyTTL,
	} {
		d, err := parseDurationEnv(key, *dst)
		if err != nil {
			return err
		}
		*dst = d
	}
	return nil
}

// Validate normalizes the values that have a canonical form and rejects the
// rest of the invalid ones.
func (c *Config) Validate() error {
	policy, err := pricing.ParsePolicy(string(c.RentalLengthPolicy))
	if err != nil {
		return fmt.Errorf("invalid RENTAL_LENGTH_POLICY %q: %w", c.RentalLengthPolicy, err)
	}
	c.RentalLengthPolicy = policy

	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		return ErrMissingCurrency
	}
	if c.CurrencyExponent < 0 || c.CurrencyExponent > 4 {
		return ErrInvalidExponent
	}
	switch strings.ToLower(strings.TrimSpace(c.ResyncSchedule)) {
	case "off", "none", "disabled":
		c.ResyncSchedule = ""
	}
	if c.ResyncSchedule != "" {
		if _, err := cron.ParseStandard(c.ResyncSchedule); err != nil {
			return fmt.Errorf("invalid RESYNC_SCHEDULE %q: %w", c.ResyncSchedule, err)
		}
	}
	if c.Mode() == ModeRemote && c.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	return nil
}

// Mode is remote once a backend URL is configured.
func (c Config) Mode() Mode {
	if strings.TrimSpace(c.GatewayBaseURL) == "" {
		return ModeMemory
	}
	return ModeRemote
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) MongoEnabled() bool {
	return strings.TrimSpace(c.MongoURI) != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
