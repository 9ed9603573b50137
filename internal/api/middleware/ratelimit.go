package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/chats/internal/metrics"
)

const (
	autoBlockThreshold = 10
	autoBlockDuration  = 24 * time.Hour
)

// RateStore is the counter and block list backing the rate limiter.
// It is implemented by store.RedisStore.
type RateStore interface {
	HitRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	RecordViolation(ctx context.Context, ip string) (int64, error)
	IsBlocked(ctx context.Context, ip string) bool
	Block(ctx context.Context, ip string, duration time.Duration, reason string) error
}

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Pattern  string // "METHOD /path-prefix"
	Requests int
	Window   time.Duration
	KeyFunc  func(r *http.Request) string
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Whitelist        []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool     // Enable auto-blocking after repeated violations
}

// RateLimiter implements sliding window rate limiting.
type RateLimiter struct {
	store            RateStore
	limits           []RateLimit
	logger           zerolog.Logger
	whitelist        []*net.IPNet
	whitelistIPs     map[string]bool
	autoBlockEnabled bool
	now              func() time.Time
}

// DefaultRateLimits returns the per-route limits, most specific first.
func DefaultRateLimits() []RateLimit {
	return []RateLimit{
		{"POST /auth/register", 10, time.Hour, ipKey},
		{"POST /auth/token", 30, time.Minute, ipKey},
		{"POST /conversations/", 30, time.Minute, userKey}, // add_participant
		{"POST /conversations", 20, time.Hour, userKey},
		{"PATCH /conversations/", 30, time.Minute, userKey},
		{"DELETE /conversations/", 30, time.Minute, userKey},
		{"POST /messages", 60, time.Minute, userKey},
		{"GET /", 300, time.Minute, userKey},
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(s RateStore, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		store:            s,
		limits:           DefaultRateLimits(),
		logger:           logger,
		whitelistIPs:     make(map[string]bool),
		autoBlockEnabled: cfg.AutoBlockEnabled,
		now:              time.Now,
	}

	// Parse whitelist entries
	for _, entry := range cfg.Whitelist {
		if strings.Contains(entry, "/") {
			// CIDR notation
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			// Single IP
			rl.whitelistIPs[entry] = true
		}
	}

	if len(cfg.Whitelist) > 0 {
		logger.Info().
			Int("ips", len(rl.whitelistIPs)).
			Int("cidrs", len(rl.whitelist)).
			Msg("rate limit whitelist configured")
	}

	return rl
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// ipKey returns rate limit key based on client IP.
func ipKey(r *http.Request) string {
	return "ratelimit:ip:" + RealIP(r)
}

// userKey keys authenticated requests per user and anonymous ones per IP.
func userKey(r *http.Request) string {
	if user := GetUserFromContext(r.Context()); user != nil {
		return "ratelimit:user:" + user.ID.String()
	}
	return ipKey(r)
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CheckAndIncrement checks rate limit and increments counter.
// Returns (allowed, remaining, resetAt). Store failures let the request through.
func (rl *RateLimiter) CheckAndIncrement(ctx context.Context, key string, limit int, window time.Duration) (bool, int, time.Time) {
	resetAt := rl.now().Add(window)

	count, err := rl.store.HitRateLimit(ctx, key, window)
	if err != nil {
		rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true, limit, resetAt
	}

	remaining := limit - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return count < int64(limit), remaining, resetAt
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)

		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.store.IsBlocked(r.Context(), ip) {
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			jsonError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		limit := rl.findLimit(r)
		if limit == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := limit.KeyFunc(r)
		allowed, remaining, resetAt := rl.CheckAndIncrement(r.Context(), key, limit.Requests, limit.Window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			metrics.RateLimitHits.WithLabelValues(limit.Pattern).Inc()

			rl.trackViolation(r.Context(), ip)

			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")

			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// findLimit returns the first limit whose pattern prefixes the request.
func (rl *RateLimiter) findLimit(r *http.Request) *RateLimit {
	key := r.Method + " " + r.URL.Path

	for i := range rl.limits {
		if strings.HasPrefix(key, rl.limits[i].Pattern) {
			return &rl.limits[i]
		}
	}
	return nil
}

// trackViolation tracks rate limit violations and auto-blocks repeat offenders.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.autoBlockEnabled {
		return
	}

	count, err := rl.store.RecordViolation(ctx, ip)
	if err != nil {
		rl.logger.Warn().Err(err).Str("ip", ip).Msg("failed to record violation")
		return
	}

	if count >= autoBlockThreshold {
		if err := rl.store.Block(ctx, ip, autoBlockDuration, "repeated rate limit violations"); err != nil {
			rl.logger.Error().Err(err).Str("ip", ip).Msg("failed to block IP")
			return
		}
		metrics.BlockedRequests.WithLabelValues("auto_block").Inc()
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", count).
			Msg("IP auto-blocked for repeated violations")
	}
}
