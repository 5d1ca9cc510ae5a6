package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"account-service/internal/models"
)

var (
	// ErrMiss is returned when a key is not cached.
	ErrMiss = errors.New("cache miss")
	// ErrStale is returned by SetProfile when the profile was invalidated
	// after its version was read. Nothing is written.
	ErrStale = errors.New("cache: profile invalidated since read")
)

const (
	ProfileTTL = 60 * time.Second
	// versionTTL outlives any read-through window by a wide margin.
	versionTTL = 24 * time.Hour
)

func ProfileKey(accountID uuid.UUID) string {
	return "account:profile:" + accountID.String()
}

func ProfileVersionKey(accountID uuid.UUID) string {
	return "account:profile:version:" + accountID.String()
}

// getter is satisfied by both the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisCache{client: client}
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisCache) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.getJSON(ctx, ProfileKey(accountID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ProfileVersion returns the account's invalidation counter. Read it before
// loading the account from the store and hand it back to SetProfile.
func (r *RedisCache) ProfileVersion(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.version(ctx, r.client, accountID)
}

func (r *RedisCache) version(ctx context.Context, c getter, accountID uuid.UUID) (int64, error) {
	v, err := c.Get(ctx, ProfileVersionKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetProfile caches profile only if no invalidation happened since version
// was read. The version key is watched, so a concurrent bump aborts the write.
func (r *RedisCache) SetProfile(ctx context.Context, profile models.Profile, version int64) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.version(ctx, tx, profile.ID)
		if err != nil {
			return err
		}
		if current != version {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ProfileKey(profile.ID), data, ProfileTTL)
			return nil
		})
		return err
	}, ProfileVersionKey(profile.ID))
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

// InvalidateProfiles drops the cached profiles and bumps their versions so
// reads that started earlier cannot write them back.
func (r *RedisCache) InvalidateProfiles(ctx context.Context, accountIDs ...uuid.UUID) error {
	if len(accountIDs) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range accountIDs {
			pipe.Incr(ctx, ProfileVersionKey(id))
			pipe.Expire(ctx, ProfileVersionKey(id), versionTTL)
			pipe.Del(ctx, ProfileKey(id))
		}
		return nil
	})
	return err
}
