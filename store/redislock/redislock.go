// Package redislock serializes basis writes across API replicas with a Redis
// lease per basis key.
//
// Acquire is SET key token NX PX ttl, retried until it succeeds or the
// context ends. Release deletes the key only if it still holds our token, so
// a lease that expired and was taken by another replica is left alone.
package redislock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-basis/payroll"
)

const (
	DefaultTTL       = 30 * time.Second
	DefaultRetry     = 50 * time.Millisecond
	DefaultKeyPrefix = "payroll:basis-lock:"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements payroll.KeyLocker on Redis.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger zerolog.Logger
}

var _ payroll.KeyLocker = (*Locker)(nil)

// Option customizes a Locker.
type Option func(*Locker)

// WithTTL sets the lease length. It must exceed the longest compute-and-write
// for one person.
func WithTTL(ttl time.Duration) Option { return func(l *Locker) { l.ttl = ttl } }

// WithRetry sets the polling interval while waiting for a held key.
func WithRetry(d time.Duration) Option { return func(l *Locker) { l.retry = d } }

// WithPrefix sets the Redis key prefix.
func WithPrefix(p string) Option { return func(l *Locker) { l.prefix = p } }

// WithLogger sets where failed releases are reported.
func WithLogger(logger zerolog.Logger) Option { return func(l *Locker) { l.logger = logger } }

func New(client redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{client: client, ttl: DefaultTTL, retry: DefaultRetry, prefix: DefaultKeyPrefix, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until the lease for key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(redisKey, token string) {
	// the caller's context may already be done; release on a short fresh one
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
		// the lease stays held until its TTL runs out
		l.logger.Warn().Err(err).Str("key", redisKey).Dur("ttl", l.ttl).Msg("release basis lock failed")
	}
}
