package config

import (
    "strings"
    "time"
)

// maxCacheTTL bounds CACHE_TTL.  Cached flight rows carry the live
// available_seats and baggage_count aggregates, so entries must not
// outlive a few check-ins.
const maxCacheTTL = time.Minute

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Only safe methods are ever
// cached; anything else listed in CACHE_METHODS is ignored.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET,HEAD")),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", "route_query")),
        Prefix:       envStr("CACHE_PREFIX", "kiosk:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 || cfg.TTL > maxCacheTTL { cfg.TTL = maxCacheTTL }
    if cfg.MaxBodyBytes < 0 { cfg.MaxBodyBytes = 0 }
    return cfg
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        switch p = strings.TrimSpace(strings.ToUpper(p)); p {
        case "GET", "HEAD":
            m[p] = true
        }
    }
    return m
}
