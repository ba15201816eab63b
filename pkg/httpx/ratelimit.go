package httpx

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the client-side request budget.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// APILimit keeps a single device comfortably under the backend's own limits,
// so a fan-out of parallel list fetches does not earn a 429.
// Override with: RATELIMIT_API_REQUESTS, RATELIMIT_API_WINDOW_SEC, RATELIMIT_API_BURST
var APILimit = RateLimitConfig{
	RequestsPerWindow: 120,
	Window:            time.Minute,
	Burst:             20,
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_API_REQUESTS, RATELIMIT_API_WINDOW_SEC, RATELIMIT_API_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// KeyExtractor picks the bucket an outbound request is charged against.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor buckets requests by destination host.
func HostKeyExtractor(r *http.Request) string {
	return strings.ToLower(r.URL.Host)
}

// Throttle is an http.RoundTripper that waits for a token from a per-key
// limiter before sending. Waiting honours the request context, so a
// cancelled or timed-out request stops waiting immediately.
type Throttle struct {
	base     http.RoundTripper
	key      KeyExtractor
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewThrottle wraps base (http.DefaultTransport when nil).
func NewThrottle(base http.RoundTripper, config RateLimitConfig, key KeyExtractor) *Throttle {
	if base == nil {
		base = http.DefaultTransport
	}
	if key == nil {
		key = HostKeyExtractor
	}

	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()

	return &Throttle{
		base:  base,
		key:   key,
		rate:  rate.Limit(ratePerSecond),
		burst: max(config.Burst, 1),
	}
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	if l, ok := t.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := t.limiters.LoadOrStore(key, rate.NewLimiter(t.rate, t.burst))
	return actual.(*rate.Limiter)
}

func (t *Throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter(t.key(req)).Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// RetryAfter parses a Retry-After header given either as delay-seconds or as
// an HTTP date. It returns 0 when the header is absent or unparseable.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}

	return 0
}
