// Package middleware holds the Redis-backed echo middleware of the kiosk
// API: a token-bucket rate limiter keyed by client address, kiosk session
// and route, and a response cache for the flight read endpoints.  Both
// pass requests through untouched when Redis is not configured.
package middleware

import (
    "context"
    "fmt"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/airport-kiosk/internal/config"
)

// SessionHeader carries the kiosk session id on requests that do not
// have it in the query string.
const SessionHeader = "X-Session-ID"

// tokenBucketScript refills and takes one token atomically.
// KEYS[1] bucket; ARGV now_ms, capacity, refill_tokens, interval_ms, ttl_seconds.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local now, cap, step, every, ttl =
        tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

    local have = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms')
    local left, since = tonumber(have[1]), tonumber(have[2])
    if not left or not since then
        left, since = cap, now
    end

    if every > 0 and step > 0 and now > since then
        local n = math.floor((now - since) / every)
        if n > 0 then
            left = math.min(cap, left + n * step)
            since = since + n * every
        end
    end

    local ok, wait = 0, 0
    if left >= 1 then
        ok, left = 1, left - 1
    else
        wait = math.max(0, every - (now - since))
    end

    redis.call('HSET', KEYS[1], 'tokens', left, 'last_refill_ms', since)
    redis.call('EXPIRE', KEYS[1], ttl)
    return { ok, left, wait }
`)

// verdict is one evaluation of the bucket.
type verdict struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewTokenBucket limits each key to cfg.Capacity requests, refilled by
// cfg.RefillTokens every cfg.RefillInterval.  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            v, err := take(c.Request().Context(), rdb, cfg, key, time.Now())
            if err != nil {
                if cfg.Debug {
                    slog.Warn("ratelimit: bucket unavailable", "key", key, "err", err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if !v.allowed {
                if cfg.Debug {
                    slog.Info("ratelimit: blocked", "key", key, "retry", v.retry)
                }
                return tooManyRequests(c, v.retry)
            }
            return next(c)
        }
    }
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (verdict, error) {
    vals, err := tokenBucketScript.Run(ctx, rdb, []string{key},
        now.UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Result()
    if err != nil {
        return verdict{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return verdict{}, fmt.Errorf("unexpected script result %#v", vals)
    }
    return verdict{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, nil
}

// tooManyRequests answers 429 in the API envelope.
func tooManyRequests(c echo.Context, retry time.Duration) error {
    secs := int(math.Ceil(retry.Seconds()))
    if secs < 0 { secs = 0 }
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    return c.JSON(http.StatusTooManyRequests, map[string]any{
        "success":   false,
        "message":   "rate limit exceeded",
        "timestamp": time.Now().UTC().Format(time.RFC3339),
        "error": map[string]any{
            "code":        "RATE_LIMITED",
            "message":     "rate limit exceeded",
            "retry_after": secs,
        },
    })
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int32: return int64(t)
    case int: return int64(t)
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    sid := sessionKey(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "session":
        parts = append(parts, "session", sid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_session":
        parts = append(parts, "ip", ip, "session", sid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "session_route":
        parts = append(parts, "session", sid, "route", route)
    default:
        parts = append(parts, "ip", ip, "session", sid, "route", route)
    }
    return strings.Join(parts, ":")
}

// sessionKey identifies the kiosk session behind a request.  Seat
// operations carry it in the body, which the limiter does not read, so
// clients repeat it in the header.
func sessionKey(c echo.Context) string {
    if v := strings.TrimSpace(c.Request().Header.Get(SessionHeader)); v != "" { return v }
    if v := strings.TrimSpace(c.QueryParam("sessionId")); v != "" { return v }
    return "anon"
}
