package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dashboard reading snapshot shared by every process that ingests.
const (
	CurrentValuesKey = "smarthome:current-values"
	CurrentValuesTTL = time.Minute
)

var errStaleGeneration = errors.New("snapshot invalidated since read")

// Snapshot caches one JSON document under a fixed key. Every Invalidate bumps
// a generation counter so a value computed before it can no longer be stored.
// A nil client disables caching.
type Snapshot struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewSnapshot(client *redis.Client, key string, ttl time.Duration) *Snapshot {
	return &Snapshot{client: client, key: key, ttl: ttl}
}

func (s *Snapshot) generationKey() string {
	return s.key + ":gen"
}

// Load decodes the cached document into dest and reports whether it was present.
func (s *Snapshot) Load(ctx context.Context, dest any) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Generation must be read before computing the value later passed to Store.
func (s *Snapshot) Generation(ctx context.Context) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	return readGeneration(ctx, s.client, s.generationKey())
}

// Store writes value unless the snapshot was invalidated after gen was read,
// and reports whether it wrote.
func (s *Snapshot) Store(ctx context.Context, gen int64, value any) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, s.generationKey())
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, raw, s.ttl)
			return nil
		})
		return err
	}, s.generationKey())

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

func (s *Snapshot) Invalidate(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, s.generationKey())
		pipe.Del(ctx, s.key)
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, c getter, key string) (int64, error) {
	gen, err := c.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}
