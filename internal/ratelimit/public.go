package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/learnsprout/sproutlink/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyPublicIP = "registration:public:ip:%s"
	keySyncLock = "registration:sync:lock"

	syncLockTTL = 10 * time.Minute
)

// PublicLimiter throttles the unauthenticated registration endpoints
// per client IP and serializes overlapping order sync runs. A nil
// limiter (rate limiting disabled) allows everything.
type PublicLimiter struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate  float64
	burst int
}

func NewPublicLimiter(cfg config.Config) (*PublicLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("rate limit rate and burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &PublicLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.Rate,
		burst:   limitCfg.Burst,
	}, nil
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *PublicLimiter) AllowIP(ctx context.Context, ip string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPublicIP, strings.TrimSpace(ip)), l.rate, l.burst)
}

// TryLockSync guards a sync pass so a slow scheduled run and a manual
// trigger never interleave over the same orders.
func (l *PublicLimiter) TryLockSync(ctx context.Context) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keySyncLock, syncLockTTL)
}

func (l *PublicLimiter) ReleaseSync(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keySyncLock, token)
}
