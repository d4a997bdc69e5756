package keycache

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const minTTL = time.Second

// Store is a Redis-backed byte cache for provider key material shared between
// edge instances. Values expire with their TTL; there is no explicit invalidation
// protocol.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	jitterRange time.Duration
}

// NewStore creates a Store. prefix namespaces keys; jitterRange, when positive,
// shortens each TTL by a random amount up to jitterRange so instances do not
// refetch in lockstep.
func NewStore(client redis.UniversalClient, prefix string, jitterRange time.Duration) *Store {
	if prefix == "" {
		prefix = "eak"
	}
	return &Store{
		redis:       client,
		prefix:      prefix,
		jitterRange: jitterRange,
	}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

// Get returns the value stored under name and its remaining TTL.
// A miss returns a nil value and a nil error.
//
//	Performance: 1 pipelined round trip (GET + PTTL).
func (s *Store) Get(ctx context.Context, name string) ([]byte, time.Duration, error) {
	key := s.key(name)

	var (
		getCmd  *redis.StringCmd
		pttlCmd *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		pttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ttl := pttlCmd.Val()
	if ttl <= 0 {
		// no expiry or already gone; treat as a miss so the caller refetches
		return nil, 0, nil
	}
	return data, ttl, nil
}

// Set stores value under name for at most ttl.
func (s *Store) Set(ctx context.Context, name string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	next, err := s.nextTTL(ttl)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(name), value, next).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes name. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) nextTTL(ttl time.Duration) (time.Duration, error) {
	next := ttl
	if s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		next -= jitter
	}

	floor := minTTL
	if ttl < floor {
		floor = ttl
	}
	if next < floor {
		next = floor
	}
	return next, nil
}

// randomJitter returns a uniform duration in [0, jitterRange].
func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max == math.MaxInt64 {
		return 0, errors.New("jitter range too large")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(max+1))
	if err != nil {
		return 0, err
	}
	return time.Duration(n.Int64()), nil
}
