package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/lawdirectory/internal/config"
)

const keyLookup = "lookup:%s:%s"

// LookupLimiter throttles the public directory lookups per endpoint and client.
type LookupLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLookupLimiter(cfg config.Config, client *redis.Client) (*LookupLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil, nil
	}
	if limitCfg.LookupRate <= 0 || limitCfg.LookupBurst <= 0 {
		return nil, errors.New("lookup rate limit must be positive")
	}

	return &LookupLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.LookupRate,
		burst:   limitCfg.LookupBurst,
	}, nil
}

func (l *LookupLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *LookupLimiter) Allow(ctx context.Context, endpoint, clientKey string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, lookupKey(endpoint, clientKey), l.rate, l.burst)
}

func lookupKey(endpoint, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "anonymous"
	}
	return fmt.Sprintf(keyLookup, strings.TrimSpace(endpoint), clientKey)
}
