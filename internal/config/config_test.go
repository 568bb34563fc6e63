package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
    t.Helper()
    for k, v := range map[string]string{
        "APP_ENV":    "test",
        "APP_PORT":   "8080",
        "DB_USER":    "app",
        "DB_HOST":    "127.0.0.1",
        "DB_PORT":    "3306",
        "DB_NAME":    "tickets",
        "JWT_SECRET": "s3cret",
    } {
        t.Setenv(k, v)
    }
}

func TestLoadDefaults(t *testing.T) {
    setRequired(t)
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "")
    t.Setenv("AUDIT_INTERVAL", "")

    cfg := Load()
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, 10, cfg.BookingCodeLength)
    assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
    assert.Equal(t, 5*time.Minute, cfg.AuditInterval)
    assert.True(t, cfg.SchemaAutoMigrate)
    assert.Empty(t, cfg.AMQPURL)
    assert.Equal(t, 587, cfg.SMTPPort)
    assert.Equal(t, 25, cfg.DBMaxOpenConns)
    assert.Equal(t, 30*time.Minute, cfg.DBConnMaxLifetime)
}

func TestLoadOverrides(t *testing.T) {
    setRequired(t)
    t.Setenv("AMQP_URL", "amqp://broker:5672/")
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("BOOKING_CODE_LENGTH", "12")
    t.Setenv("NOTIFY_TIMEOUT", "3s")
    t.Setenv("AUDIT_INTERVAL", "0s")
    t.Setenv("SCHEMA_AUTO_MIGRATE", "off")
    t.Setenv("LOG_FORMAT", "json")

    cfg := Load()
    assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
    assert.Equal(t, 12, cfg.BookingCodeLength)
    assert.Equal(t, 3*time.Second, cfg.NotifyTimeout)
    assert.Zero(t, cfg.AuditInterval)
    assert.False(t, cfg.SchemaAutoMigrate)
    assert.Equal(t, "json", cfg.LogFormat)
}

func TestRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is at least five refill intervals")
}

func TestCacheConfigMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    t.Setenv("CACHE_TTL", "bogus")

    cfg := LoadCacheConfig()
    assert.True(t, cfg.Methods["GET"])
    assert.True(t, cfg.Methods["HEAD"])
    assert.False(t, cfg.Methods["POST"])
    assert.Equal(t, time.Second, cfg.TTL)
}

func TestLoadRedisConfig(t *testing.T) {
    t.Setenv("REDIS_ADDR", "cache:6380")
    t.Setenv("REDIS_HOST", "")
    t.Setenv("REDIS_PORT", "")
    t.Setenv("REDIS_DB", "2")
    t.Setenv("REDIS_TLS", "true")
    t.Setenv("REDIS_TLS_INSECURE", "")

    cfg := LoadRedisConfig()
    assert.Equal(t, "cache:6380", cfg.Addr)
    assert.Equal(t, 2, cfg.DB)
    assert.Equal(t, 2*time.Second, cfg.PingTimeout)

    opts := cfg.options()
    if assert.NotNil(t, opts.TLSConfig) {
        assert.False(t, opts.TLSConfig.InsecureSkipVerify, "certificates are verified unless opted out")
    }

    t.Setenv("REDIS_HOST", "10.0.0.5")
    t.Setenv("REDIS_PORT", "6379")
    t.Setenv("REDIS_TLS", "")
    cfg = LoadRedisConfig()
    assert.Equal(t, "10.0.0.5:6379", cfg.Addr)
    assert.Nil(t, cfg.options().TLSConfig)
}
