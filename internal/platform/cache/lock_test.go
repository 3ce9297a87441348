package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cloudcoder/internal/common"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestConnectFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestWithLockRunsAndReleases(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, time.Second, zaptest.NewLogger(t))

	ran := false
	err := l.WithLock(context.Background(), "k", func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("k"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("k"))
}

func TestWithLockReturnsFnError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, time.Second, zaptest.NewLogger(t))
	failure := errors.New("work failed")

	err := l.WithLock(context.Background(), "k", func(ctx context.Context) error { return failure })
	assert.ErrorIs(t, err, failure)
	assert.False(t, mr.Exists("k"))
}

func TestWithLockIsExclusive(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewLocker(rdb, 5*time.Second, zaptest.NewLogger(t))

	var inside, maxInside, total atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), "shared", func(ctx context.Context) error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				total.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside.Load())
	assert.EqualValues(t, 5, total.Load())
}

func TestWithLockGivesUpOnHeldLock(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, 100*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, mr.Set("busy", "someone-else"))

	err := l.WithLock(context.Background(), "busy", func(ctx context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, common.ErrLockFailed)

	v, err := mr.Get("busy")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestWithLockLeavesForeignTokenAlone(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, time.Second, zaptest.NewLogger(t))

	err := l.WithLock(context.Background(), "k", func(ctx context.Context) error {
		// Simulate expiry followed by another holder taking the lock.
		return mr.Set("k", "other-holder")
	})
	require.NoError(t, err)

	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", v)
}

func TestWithLockHonoursContext(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, 10*time.Second, zaptest.NewLogger(t))
	require.NoError(t, mr.Set("busy", "x"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := l.WithLock(ctx, "busy", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLockReportsUnavailableRedis(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewLocker(rdb, time.Second, zaptest.NewLogger(t))
	mr.Close()

	called := false
	err := l.WithLock(context.Background(), "cloudcoder:lock:test", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.False(t, called)
}
