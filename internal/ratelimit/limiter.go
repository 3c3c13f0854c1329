package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Window names reported when a check is denied.
const (
	WindowBurst     = "burst"
	WindowSustained = "sustained"
)

// Result of a Check call.
type Result struct {
	Allowed bool
	// Window names which horizon tripped when Allowed is false.
	Window string
}

var allowed = Result{Allowed: true}

// Limiter enforces two independent counters per (identifier, action): a
// tight burst window and a longer sustained window. Counters live in Redis
// so enforcement holds across replicas.
type Limiter struct {
	rdb             *redis.Client
	log             *zap.SugaredLogger
	burstLimit      int
	burstWindow     time.Duration
	sustainedLimit  int
	sustainedWindow time.Duration
}

func NewLimiter(rdb *redis.Client, log *zap.SugaredLogger,
	burstLimit int, burstWindow time.Duration,
	sustainedLimit int, sustainedWindow time.Duration) *Limiter {
	return &Limiter{
		rdb:             rdb,
		log:             log,
		burstLimit:      burstLimit,
		burstWindow:     burstWindow,
		sustainedLimit:  sustainedLimit,
		sustainedWindow: sustainedWindow,
	}
}

func burstKey(action, id string) string     { return fmt.Sprintf("rl:%s:burst:%s", action, id) }
func sustainedKey(action, id string) string { return fmt.Sprintf("rl:%s:sustained:%s", action, id) }

// Check increments both counters and denies when either exceeds its limit.
// An empty identifier bypasses limiting entirely. On storage error the
// limiter fails open: the request is allowed and the error logged.
func (l *Limiter) Check(ctx context.Context, identifier, action string) Result {
	if identifier == "" {
		return allowed
	}

	pipe := l.rdb.TxPipeline()
	burst := pipe.Incr(ctx, burstKey(action, identifier))
	pipe.Expire(ctx, burstKey(action, identifier), l.burstWindow)
	sustained := pipe.Incr(ctx, sustainedKey(action, identifier))
	pipe.Expire(ctx, sustainedKey(action, identifier), l.sustainedWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warnf("rate limiter unavailable, failing open: %v", err)
		return allowed
	}

	if burst.Val() > int64(l.burstLimit) {
		return Result{Window: WindowBurst}
	}
	if sustained.Val() > int64(l.sustainedLimit) {
		return Result{Window: WindowSustained}
	}
	return allowed
}

// Reset clears both windows, used after a successful sensitive operation so
// earlier failed attempts do not linger against the caller.
func (l *Limiter) Reset(ctx context.Context, identifier, action string) {
	if identifier == "" {
		return
	}
	if err := l.rdb.Del(ctx, burstKey(action, identifier), sustainedKey(action, identifier)).Err(); err != nil {
		l.log.Warnf("rate limiter reset %s/%s: %v", action, identifier, err)
	}
}
