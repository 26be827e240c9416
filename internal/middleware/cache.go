package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/airport-kiosk/internal/config"
)

// captureWriter tees the response into buf, up to limit bytes, while
// forwarding it to the client.  size counts every byte written.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    if room := cw.limit - cw.size; cw.limit <= 0 {
        cw.buf.Write(b)
    } else if room > 0 {
        cw.buf.Write(b[:min(int64(len(b)), room)])
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// complete reports whether buf holds the whole body.
func (cw *captureWriter) complete() bool { return cw.limit <= 0 || cw.size <= cw.limit }

// cacheKeyFrom builds a stable key: prefix plus a SHA-1 of the parts
// selected by the strategy.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // "route_query"
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    // Path parameters are part of the identity of a flight read.
    for _, name := range c.ParamNames() {
        parts = append(parts, name, c.Param(name))
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    out = append(out, hdrJSON...)
    return append(out, body...), nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// NewRedisCache replays stored status, headers and body of successful
// responses.  It is mounted on the flight read endpoints only; seat maps
// and counts must always reflect committed state.  A request sent with
// "Cache-Control: no-cache" skips the lookup but refreshes the entry.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 5 * time.Second }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)
            bypass := strings.Contains(strings.ToLower(c.Request().Header.Get(echo.HeaderCacheControl)), "no-cache")
            if !bypass && serveCached(c, rdb, key) {
                return nil
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            // A truncated body would be replayed as broken JSON.
            if cw.status == http.StatusOK && cw.complete() {
                store(rdb, key, cw.status, c.Response().Header().Clone(), cw.buf.Bytes(), ttl)
            }
            return nil
        }
    }
}

// serveCached writes the entry under key and reports whether there was
// a usable one.
func serveCached(c echo.Context, rdb *redis.Client, key string) bool {
    bs, err := rdb.Get(c.Request().Context(), key).Bytes()
    if err != nil {
        return false
    }
    status, hdr, body, ok := decodePayload(bs)
    if !ok {
        return false
    }
    for k, vals := range hdr {
        if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, "X-Cache") { continue }
        for _, v := range vals {
            c.Response().Header().Add(k, v)
        }
    }
    c.Response().Header().Set("X-Cache", "HIT")
    c.Response().WriteHeader(status)
    if len(body) > 0 {
        _, _ = c.Response().Write(body)
    }
    return true
}

func store(rdb *redis.Client, key string, status int, hdr http.Header, body []byte, ttl time.Duration) {
    payload, err := encodePayload(status, hdr, body)
    if err != nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := rdb.SetEx(ctx, key, payload, ttl).Err(); err != nil {
        slog.Debug("cache: store failed", "key", key, "err", err)
    }
}
