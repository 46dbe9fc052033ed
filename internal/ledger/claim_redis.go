package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimTTL keeps claim keys around long enough to cover retried
// requests across a slate, then lets them expire.
const claimTTL = 72 * time.Hour

// RedisClaimer backs the insert-if-absent check with Redis SETNX, so
// multiple processes writing the same slate agree on first-writer-wins.
type RedisClaimer struct {
	client *redis.Client
	prefix string
}

// NewRedisClaimer wraps an existing client. The prefix namespaces claim
// keys per deployment.
func NewRedisClaimer(client *redis.Client, prefix string) *RedisClaimer {
	if prefix == "" {
		prefix = "pickledger"
	}
	return &RedisClaimer{client: client, prefix: prefix}
}

func (r *RedisClaimer) key(slateDate, pickID string) string {
	return fmt.Sprintf("%s:claim:%s:%s", r.prefix, slateDate, pickID)
}

// Claim returns true exactly once per (slateDate, pickID) across every
// process sharing the Redis instance.
func (r *RedisClaimer) Claim(ctx context.Context, slateDate, pickID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(slateDate, pickID), 1, claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim: %w", err)
	}
	return ok, nil
}

// Release deletes the claim key after a failed write so a retry can
// take the claim again.
func (r *RedisClaimer) Release(ctx context.Context, slateDate, pickID string) error {
	if err := r.client.Del(ctx, r.key(slateDate, pickID)).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
