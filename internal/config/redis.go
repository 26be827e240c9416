package config

// This file builds the shared Redis client.  Redis backs the rate
// limiter, the response cache, the distributed flight lock and the
// cross-instance event relay.  All of them are optional: when Redis is
// unreachable at startup the client is nil and callers degrade to
// pass-through middleware and in-process locks and events.

import (
    "context"
    "crypto/tls"
    "log/slog"
    "os"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions reads REDIS_ADDR (or REDIS_HOST and REDIS_PORT),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func RedisOptions() *redis.Options {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    opts := &redis.Options{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        // Pub/sub relays hold one extra connection per instance.
        PoolSize: envInt("REDIS_POOL_SIZE", 20),
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{
            ServerName:         strings.Split(addr, ":")[0],
            InsecureSkipVerify: envBool("REDIS_TLS_INSECURE", false),
        }
    }
    return opts
}

// NewRedisClient connects and pings.  It returns nil when REDIS_ENABLED
// is false or the server does not answer within two seconds.
func NewRedisClient() *redis.Client {
    if !envBool("REDIS_ENABLED", true) {
        return nil
    }
    opts := RedisOptions()
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        slog.Warn("redis: ping failed, running without redis", "addr", opts.Addr, "err", err)
        _ = client.Close()
        return nil
    }
    return client
}
