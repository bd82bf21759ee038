package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REDIS_URL", "")

	cfg := LoadServer()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 10, cfg.DB.Retries)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "shareit:bookings", cfg.RedisChannel)
}

func TestLoadGatewayOverrides(t *testing.T) {
	t.Setenv("SHAREIT_SERVER_URL", "http://server:9090/")
	t.Setenv("SERVER_TIMEOUT", "3s")
	t.Setenv("BREAKER_MAX_FAILURES", "not-a-number")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg := LoadGateway()

	assert.Equal(t, "http://server:9090", cfg.ServerURL)
	assert.Equal(t, 3*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 5, cfg.BreakerMaxFailures)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}
