package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 2*time.Second, c.RefillInterval)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.Equal(t, "ip_user_route", c.KeyStrategy)
}

func TestRateLimitForAnonymousKeysByIP(t *testing.T) {
	c := RateLimitConfig{Enabled: true, Capacity: 30, KeyStrategy: "user", Prefix: "rl"}
	open := c.ForAnonymous()

	assert.Equal(t, "ip", open.KeyStrategy)
	assert.Equal(t, "rl:open", open.Prefix)
	assert.Equal(t, 30, open.Capacity)
	assert.Equal(t, "user", c.KeyStrategy)
}

func TestLoadRateLimitBurstOverridesCapacity(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "15")
	assert.Equal(t, 15, LoadRateLimitConfig().Capacity)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "not-a-duration")

	c := LoadCacheConfig()
	assert.True(t, c.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestLoadRedisConfigHostPort(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "yes")

	c := LoadRedisConfig()
	assert.Equal(t, "cache:6380", c.Addr)
	assert.True(t, c.TLS)
}

func TestLoadQueueConfigDefaults(t *testing.T) {
	c := LoadQueueConfig()
	assert.Equal(t, "request.events", c.Queue)
	assert.True(t, c.PublishEnabled)
	assert.False(t, c.ConsumerEnabled)
	assert.Equal(t, "logs/request-events.log", c.LogPath)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG", "OFF")
	assert.False(t, envBool("FLAG", true))
	t.Setenv("FLAG", "maybe")
	assert.True(t, envBool("FLAG", true))
}
