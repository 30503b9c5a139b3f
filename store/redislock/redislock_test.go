package redislock_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/store/redislock"
)

func newLocker(t *testing.T, opts ...redislock.Option) (*redislock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	opts = append([]redislock.Option{redislock.WithRetry(time.Millisecond)}, opts...)
	return redislock.New(client, opts...), mr
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newLocker(t)

	unlock, err := locker.Lock(context.Background(), "org-1/alice/2025-03-01..2025-03-31")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redislock.DefaultKeyPrefix+"org-1/alice/2025-03-01..2025-03-31"))

	unlock()
	assert.False(t, mr.Exists(redislock.DefaultKeyPrefix+"org-1/alice/2025-03-01..2025-03-31"))
}

func TestLocker_WaitsForHolder(t *testing.T) {
	locker, _ := newLocker(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), "k")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLocker_ContextTimeout(t *testing.T) {
	locker, _ := newLocker(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	// GIVEN: a lease that expires and is taken over
	locker, mr := newLocker(t, redislock.WithTTL(time.Second))
	unlockOld, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlockNew, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// WHEN: the old holder releases late
	unlockOld()

	// THEN: the new holder keeps the key
	assert.True(t, mr.Exists(redislock.DefaultKeyPrefix+"k"))
	unlockNew()
	assert.False(t, mr.Exists(redislock.DefaultKeyPrefix+"k"))
}

func TestLocker_FailedReleaseIsLogged(t *testing.T) {
	// GIVEN: a held lease and a Redis that goes away
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	var logs bytes.Buffer
	locker := redislock.New(client, redislock.WithLogger(zerolog.New(&logs)))

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	mr.Close()

	// WHEN
	unlock()

	// THEN
	assert.Contains(t, logs.String(), "release basis lock failed")
	assert.Contains(t, logs.String(), redislock.DefaultKeyPrefix+"k")
}

func TestLocker_MutualExclusion(t *testing.T) {
	locker, _ := newLocker(t)
	var inside, violations int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Zero(t, violations)
}

func TestLocker_CustomPrefix(t *testing.T) {
	locker, mr := newLocker(t, redislock.WithPrefix("test:"))

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	assert.True(t, mr.Exists("test:k"))
}
