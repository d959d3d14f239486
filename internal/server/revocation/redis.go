package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps revocations in Redis with native key expiry.
//
// Reads and writes share one client pointed at the primary, so a
// revocation acknowledged by Revoke is visible to every later IsRevoked made
// through this process. Replicas are never read. With minReplicas > 0
// Revoke additionally WAITs until that many replicas hold the entry, which
// keeps it through a failover.
type RedisLedger struct {
	client      redis.UniversalClient
	minReplicas int
	waitTimeout time.Duration
}

type RedisOption func(*RedisLedger)

// WithReplicaAck makes Revoke wait for n replica acknowledgements.
func WithReplicaAck(n int, timeout time.Duration) RedisOption {
	return func(l *RedisLedger) {
		l.minReplicas = n
		l.waitTimeout = timeout
	}
}

func NewRedisLedger(client redis.UniversalClient, opts ...RedisOption) *RedisLedger {
	l := &RedisLedger{client: client}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLedger) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := l.client.Set(ctx, Key(token), true, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", common.ErrLedgerUnavailable, err)
	}

	if l.minReplicas <= 0 {
		return nil
	}

	// WAIT is not part of redis.UniversalClient; its timeout is in
	// milliseconds and 0 would block forever.
	timeoutMs := l.waitTimeout.Milliseconds()
	if timeoutMs < 1 {
		timeoutMs = 1
	}
	acked, err := l.client.Do(ctx, "WAIT", l.minReplicas, timeoutMs).Int64()
	if err != nil {
		return fmt.Errorf("%w: wait: %w", common.ErrLedgerUnavailable, err)
	}
	if acked < int64(l.minReplicas) {
		return fmt.Errorf("%w: %d of %d replicas acknowledged", common.ErrLedgerUnavailable, acked, l.minReplicas)
	}

	return nil
}

func (l *RedisLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, Key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists: %w", common.ErrLedgerUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of token's entry, or 0 when there is none.
func (l *RedisLedger) TTL(ctx context.Context, token string) (time.Duration, error) {
	d, err := l.client.PTTL(ctx, Key(token)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: pttl: %w", common.ErrLedgerUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
