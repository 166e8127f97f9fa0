package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentride/internal/domain/pricing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "APP_ENV", "HTTP_ADDR", "GATEWAY_BASE_URL", "GATEWAY_TIMEOUT", "GATEWAY_TOKEN",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "KAFKA_GROUP_ID", "MONGO_URI", "MONGO_DB",
		"RESYNC_SCHEDULE", "RESYNC_TIMEOUT", "IDEMP_TTL", "PAYMENT_RETURN_URL", "CURRENCY",
		"CURRENCY_EXPONENT", "RENTAL_LENGTH_POLICY", "BOOKING_FIXTURES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeMemory, cfg.Mode())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.MongoEnabled())
	assert.Equal(t, "@every 10m", cfg.ResyncSchedule)
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, pricing.PolicyReject, cfg.RentalLengthPolicy)
	assert.Equal(t, int32(2), cfg.CurrencyExponent)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rentride.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
gateway_base_url: https://api.example.com
gateway_timeout: 3s
kafka_brokers: [kafka-1:9092]
currency: eur
rental_length_policy: minimum-one-day
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("IDEMP_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ModeRemote, cfg.Mode())
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, pricing.PolicyMinimumOneDay, cfg.RentalLengthPolicy)
}

func TestLoadResyncCanBeDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESYNC_SCHEDULE", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ResyncSchedule)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"duration":  {"IDEMP_TTL": "forever"},
		"policy":    {"RENTAL_LENGTH_POLICY": "round-up"},
		"exponent":  {"CURRENCY_EXPONENT": "9"},
		"schedule":  {"RESYNC_SCHEDULE": "every tuesday"},
		"file":      {"CONFIG_FILE": filepath.Join(os.TempDir(), "rentride-missing.yaml")},
		"exp parse": {"CURRENCY_EXPONENT": "two"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
