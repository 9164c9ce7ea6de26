// Package redis implements the Redis session store: one hash per session
// with a sliding idle TTL.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/mercado-storefront/internal/session"
)

var _ session.Store = (*SessionStore)(nil)

// SessionStore implements session.Store on Redis hashes.
type SessionStore struct {
	c   *redis.Client
	ttl time.Duration
}

// New connects to the Redis server at addr. addr may be a host:port pair or
// a redis:// URL.
func New(addr string, ttl time.Duration) (*SessionStore, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	return &SessionStore{
		c:   redis.NewClient(opts),
		ttl: ttl,
	}, nil
}

func sessionKey(sid string) string { return "session:" + sid }

func (s *SessionStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	v, err := s.c.HGet(ctx, sessionKey(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "hget %q", key)
	}
	s.touch(ctx, sid)
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, sid, key, value string) error {
	pipe := s.c.TxPipeline()
	pipe.HSet(ctx, sessionKey(sid), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, sessionKey(sid), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "hset %q", key)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.c.HDel(ctx, sessionKey(sid), keys...).Err(); err != nil {
		return errors.Wrap(err, "hdel")
	}
	return nil
}

func (s *SessionStore) touch(ctx context.Context, sid string) {
	if s.ttl <= 0 {
		return
	}
	// Best effort: a failed refresh only shortens the session.
	_ = s.c.Expire(ctx, sessionKey(sid), s.ttl).Err()
}

// Ping checks Redis connectivity.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

// Close closes the client.
func (s *SessionStore) Close() error {
	return s.c.Close()
}
