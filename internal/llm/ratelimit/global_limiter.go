package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	llmerrors "github.com/ahrav/go-ctxqa/internal/llm/errors"
)

// Redis connection constants.
const (
	redisReadTimeout  = 5 * time.Second
	redisWriteTimeout = 5 * time.Second
	redisPoolSize     = 10

	// globalKeyPrefix namespaces limiter keys in shared Redis instances.
	globalKeyPrefix = "qa:rl:"
)

// slidingWindowScript implements the prune-count-admit sequence atomically
// in Redis using a sorted set of microsecond timestamps. Returns
// {1, 0} on admission or {0, retry_after_micros} on refusal.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, math.ceil(window / 1000))
		return {1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry = 0
	if oldest[2] then
		retry = (tonumber(oldest[2]) + window) - now
	end
	return {0, retry}
`)

// GlobalLimiter enforces a sliding-window limit shared across service
// instances via Redis. When Redis is unreachable the limiter enters
// degraded mode and admits requests, leaving throttling to the local
// limiter layered in front of it.
type GlobalLimiter struct {
	client      *redis.Client
	maxRequests int
	windowSize  time.Duration
	degraded    atomic.Bool
	logger      *slog.Logger
}

// NewGlobalLimiter creates a Redis-backed limiter. A nil client creates one
// from addr using conservative pool settings.
func NewGlobalLimiter(client *redis.Client, addr, password string, db, maxRequests int, windowSize time.Duration) *GlobalLimiter {
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			ReadTimeout:  redisReadTimeout,
			WriteTimeout: redisWriteTimeout,
			PoolSize:     redisPoolSize,
		})
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	return &GlobalLimiter{
		client:      client,
		maxRequests: maxRequests,
		windowSize:  windowSize,
		logger:      slog.Default().With("component", "ratelimit.global"),
	}
}

// Degraded reports whether the limiter is currently admitting requests
// without consulting Redis.
func (g *GlobalLimiter) Degraded() bool { return g.degraded.Load() }

// Check implements Admitter against the shared Redis window. Redis
// failures admit the request and flip the limiter into degraded mode.
func (g *GlobalLimiter) Check(ctx context.Context, identifier string) error {
	key := globalKeyPrefix + identifier
	nowMicros := time.Now().UnixMicro()
	windowMicros := g.windowSize.Microseconds()

	// Unique member so concurrent admissions in the same microsecond all count.
	member := fmt.Sprintf("%d-%s", nowMicros, uuid.NewString())

	result, err := slidingWindowScript.Run(ctx, g.client, []string{key},
		nowMicros, windowMicros, g.maxRequests, member).Result()
	if err != nil {
		if !g.degraded.Swap(true) {
			g.logger.Warn("redis unavailable, entering degraded mode", "error", err)
		}
		return nil
	}

	res, ok := result.([]any)
	if !ok || len(res) < 2 {
		if !g.degraded.Swap(true) {
			g.logger.Warn("unexpected redis response, entering degraded mode", "response", result)
		}
		return nil
	}

	if g.degraded.Swap(false) {
		g.logger.Info("redis reachable again, leaving degraded mode")
	}

	allowed, _ := res[0].(int64)
	if allowed == 1 {
		return nil
	}

	retryMicros, _ := res[1].(int64)
	retryAfter := time.Duration(retryMicros) * time.Microsecond
	if retryAfter < 0 {
		retryAfter = 0
	}

	g.logger.Warn("request refused by distributed rate limiter",
		"identifier", identifier,
		"limit", g.maxRequests,
		"retry_after", retryAfter)

	return &llmerrors.RateLimitError{
		Identifier: identifier,
		Limit:      g.maxRequests,
		RetryAfter: retryAfter,
	}
}

// Close releases the underlying Redis connection pool.
func (g *GlobalLimiter) Close() error { return g.client.Close() }
