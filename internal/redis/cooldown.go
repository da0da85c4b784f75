package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CooldownStore enforces the per-submitter cooldown with a SET NX key that
// expires after the cooldown interval. This is the authority; clients keep
// a local countdown only for responsiveness.
type CooldownStore struct {
	rdb      *goredis.Client
	interval time.Duration
}

func NewCooldownStore(rdb *goredis.Client, interval time.Duration) *CooldownStore {
	return &CooldownStore{rdb: rdb, interval: interval}
}

func cooldownKey(sid uuid.UUID, clientID string) string {
	return "cooldown:" + sid.String() + ":" + clientID
}

// Check consumes the submitter's slot if available. When blocked, the
// remaining wait comes from the key's TTL so repeated attempts do not
// extend the cooldown.
func (c *CooldownStore) Check(ctx context.Context, sessionID uuid.UUID, clientID string) (bool, time.Duration, error) {
	key := cooldownKey(sessionID, clientID)

	set, err := c.rdb.SetNX(ctx, key, "1", c.interval).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if set {
		return true, 0, nil
	}

	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = c.interval
	}
	return false, ttl, nil
}
