package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is raised to five refill intervals")
	assert.Equal(t, "shop_route", cfg.KeyStrategy)
}

func TestLoadRateLimitConfigBurstOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "15")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")

	cfg := LoadRateLimitConfig()

	assert.Equal(t, 15, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestLoadShopifyConfigDefaults(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", "key")
	t.Setenv("SHOPIFY_API_SECRET", "secret")
	t.Setenv("SHOPIFY_BURST", "-4")

	cfg := LoadShopifyConfig()

	assert.Equal(t, DefaultAPIVersion, cfg.APIVersion)
	assert.Equal(t, 2.0, cfg.RequestsPerSecond)
	assert.Equal(t, 1, cfg.Burst)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadBatchConcurrency(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "sections")
	t.Setenv("TOKEN_ENCRYPTION_KEY", "k")
	t.Setenv("BATCH_CONCURRENCY", "0")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")

	cfg := Load()

	assert.Equal(t, 1, cfg.BatchConcurrency)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")

	cfg := LoadCacheConfig()

	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, "catalog-cache", cfg.Prefix)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	client := NewRedisClient(RedisConfig{Addr: addr})
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: addr}), "unreachable server yields nil")
}

func TestLoadRedisConfigHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "1")

	cfg := LoadRedisConfig()

	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.True(t, cfg.TLS)
}
