package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	drepo "PulseWatch/internal/domain/repository"
	"PulseWatch/pkg/cache"
)

const cooldownPrefix = "cooldown"

// CooldownStore keeps last-dispatch timestamps in the shared cache so a
// restart or a second replica sees the same cooldown state.
type CooldownStore struct {
	cache cache.Service
}

func NewCooldownStore(c cache.Service) *CooldownStore {
	return &CooldownStore{cache: c}
}

func (s *CooldownStore) LastSent(ctx context.Context, keys []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cacheKeys := make([]string, len(keys))
	for i, k := range keys {
		cacheKeys[i] = cache.GenerateKey(cooldownPrefix, k)
	}

	raw, err := s.cache.MGet(ctx, cacheKeys...)
	if err != nil {
		return nil, fmt.Errorf("cooldown mget: %w", err)
	}

	for i, k := range keys {
		v, ok := raw[cacheKeys[i]]
		if !ok {
			continue
		}
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = time.Unix(0, nanos)
	}
	return out, nil
}

// MarkSent records at for every key. Entries expire after ttl since a
// timestamp older than the cooldown no longer suppresses anything.
func (s *CooldownStore) MarkSent(ctx context.Context, keys []string, at time.Time, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(keys))
	stamp := strconv.FormatInt(at.UnixNano(), 10)
	for _, k := range keys {
		values[cache.GenerateKey(cooldownPrefix, k)] = stamp
	}
	if err := s.cache.MSet(ctx, values, ttl); err != nil {
		return fmt.Errorf("cooldown mset: %w", err)
	}
	return nil
}

var _ drepo.CooldownStore = (*CooldownStore)(nil)
