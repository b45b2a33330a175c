package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

var _ permission.Cache = (*EffectiveCache)(nil)

// EffectiveCache stores effective permission sets in Redis. Entries are
// keyed by an organization generation; invalidating an organization bumps
// the generation so older entries are never read again and expire on their
// own.
type EffectiveCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewEffectiveCache creates a cache. A ttl of zero keeps entries until the
// organization is invalidated.
func NewEffectiveCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *EffectiveCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectiveCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Connect opens a client from a redis:// URL and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func generationKey(organizationID string) string {
	return fmt.Sprintf("orgperm:generation:%s", organizationID)
}

func effectiveKey(organizationID string, generation int64, userID string) string {
	return fmt.Sprintf("orgperm:effective:%s:%d:%s", organizationID, generation, userID)
}

var errStaleGeneration = errors.New("organization generation changed")

// getter is satisfied by both the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *EffectiveCache) generation(ctx context.Context, cmd getter, organizationID string) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(organizationID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetEffective returns the cached set, or false when there is none, along
// with the organization generation the lookup used.
func (c *EffectiveCache) GetEffective(ctx context.Context, organizationID, userID string) (permission.IDSet, int64, bool, error) {
	gen, err := c.generation(ctx, c.client, organizationID)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, effectiveKey(organizationID, gen, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, 0, false, err
	}

	var ids permission.IDSet
	if err := json.Unmarshal(data, &ids); err != nil {
		c.logger.Warn("discarding unreadable cache entry", zap.String("organization", organizationID), zap.String("user", userID), zap.Error(err))
		return nil, gen, false, nil
	}
	return ids, gen, true, nil
}

// SetEffective stores ids under generation. The generation key is watched,
// so the write is dropped when the organization was invalidated after the
// caller's lookup.
func (c *EffectiveCache) SetEffective(ctx context.Context, organizationID, userID string, generation int64, ids permission.IDSet) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, organizationID)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, effectiveKey(organizationID, generation, userID), data, c.ttl)
			return nil
		})
		return err
	}, generationKey(organizationID))

	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		c.logger.Debug("dropping stale effective set", zap.String("organization", organizationID), zap.String("user", userID), zap.Int64("generation", generation))
		return nil
	}
	return err
}

func (c *EffectiveCache) InvalidateOrganization(ctx context.Context, organizationID string) error {
	return c.client.Incr(ctx, generationKey(organizationID)).Err()
}
