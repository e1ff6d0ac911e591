package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const jobLockPrefix = "lawdirectory:job-lock:"

// releaseIfOwner deletes the key only while it still carries our token.
var releaseIfOwner = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`)

var (
	ErrLockNotConfigured = errors.New("job lock not configured")
	ErrInvalidJob        = errors.New("job lock name is empty")
	ErrInvalidLeaseTTL   = errors.New("job lock ttl must be positive")
	ErrLeaseLost         = errors.New("job lock expired before release")
)

// Locker hands out exclusive leases on named directory jobs, such as loading
// the demo seed, so only one replica runs a job at a time.
type Locker struct {
	client *redis.Client
}

// Lease is held until Release or until its TTL passes.
type Lease struct {
	Job   string
	key   string
	token string
}

// NewLocker returns nil when client is nil.
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

func jobLockKey(job string) string {
	return jobLockPrefix + strings.ToLower(strings.TrimSpace(job))
}

// Acquire returns a nil lease when another replica holds the job.
func (l *Locker) Acquire(ctx context.Context, job string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockNotConfigured
	}
	if strings.TrimSpace(job) == "" {
		return nil, ErrInvalidJob
	}
	if ttl <= 0 {
		return nil, ErrInvalidLeaseTTL
	}

	lease := &Lease{Job: job, key: jobLockKey(job), token: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return lease, nil
}

// Release gives the job back. It returns ErrLeaseLost when the TTL ran out
// first and the job may have been picked up elsewhere.
func (l *Locker) Release(ctx context.Context, lease *Lease) error {
	if l == nil || l.client == nil || lease == nil {
		return nil
	}
	deleted, err := releaseIfOwner.Run(ctx, l.client, []string{lease.key}, lease.token).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLeaseLost
	}
	return nil
}
