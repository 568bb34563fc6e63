package config

import (
    "context"
    "crypto/tls"
    "net"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// RedisConfig describes the Redis instance shared by the availability cache
// and the rate limiter.  Both degrade to pass-through when Redis is down,
// so nothing here is required.
type RedisConfig struct {
    Addr        string        // host:port
    Password    string        // optional AUTH password
    DB          int           // logical database number
    PoolSize    int           // 0 keeps the go-redis default
    TLS         bool          // connect over TLS
    TLSInsecure bool          // skip certificate verification (local testing only)
    PingTimeout time.Duration // startup reachability check
}

// LoadRedisConfig reads REDIS_* variables.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Addr:        addr,
        Password:    os.Getenv("REDIS_PASSWORD"),
        DB:          envInt("REDIS_DB", 0),
        PoolSize:    envInt("REDIS_POOL_SIZE", 0),
        TLS:         envBool("REDIS_TLS", false),
        TLSInsecure: envBool("REDIS_TLS_INSECURE", false),
        PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
    }
}

// options converts the config into go-redis client options.
func (c RedisConfig) options() *redis.Options {
    opts := &redis.Options{
        Addr:     c.Addr,
        Password: c.Password,
        DB:       c.DB,
        PoolSize: c.PoolSize,
    }
    if c.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSInsecure}
    }
    return opts
}

// NewRedisClient connects to Redis and pings it.  It returns nil when the
// server cannot be reached; callers then run without caching and rate
// limiting rather than failing startup.
func NewRedisClient(cfg RedisConfig, log logrus.FieldLogger) *redis.Client {
    client := redis.NewClient(cfg.options())
    ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.WithError(err).WithField("addr", cfg.Addr).Warn("redis unavailable; caching and rate limiting disabled")
        _ = client.Close()
        return nil
    }
    log.WithFields(logrus.Fields{"addr": cfg.Addr, "db": cfg.DB}).Info("redis connected")
    return client
}
