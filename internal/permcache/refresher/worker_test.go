package refresher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ispreport/internal/clock"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type countingSyncer struct {
	calls    atomic.Int32
	err      error
	deadline atomic.Bool
}

func (s *countingSyncer) SyncAll(ctx context.Context, trigger string) ([]*domain.SyncRun, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		s.deadline.Store(true)
	}
	return nil, s.err
}

func newTestWorker(t *testing.T, s Syncer, locker *Locker) *Worker {
	return NewWorker(Params{
		Syncer: s,
		Log:    zaptest.NewLogger(t),
		Clock:  clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Config: Config{Enabled: true, Interval: time.Hour, Timeout: time.Second},
		Locker: locker,
	})
}

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestRunOnceWithoutLocker(t *testing.T) {
	s := &countingSyncer{}
	w := newTestWorker(t, s, nil)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, int32(1), s.calls.Load())
	assert.True(t, s.deadline.Load())
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	locker, mr := newTestLocker(t)
	require.NoError(t, mr.Set(DefaultLockKey, "other-replica"))

	s := &countingSyncer{}
	w := newTestWorker(t, s, locker)

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Equal(t, int32(0), s.calls.Load())

	held, err := mr.Get(DefaultLockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", held)
}

func TestRunOnceReleasesLock(t *testing.T) {
	locker, mr := newTestLocker(t)
	s := &countingSyncer{err: errors.New("source down")}
	w := newTestWorker(t, s, locker)

	err := w.RunOnce(context.Background())
	require.EqualError(t, err, "source down")
	assert.Equal(t, int32(1), s.calls.Load())
	assert.False(t, mr.Exists(DefaultLockKey))
}

func TestLockerReleaseRequiresOwnerToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "not-the-owner"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	s := &countingSyncer{}
	w := newTestWorker(t, s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestFromConfigDefaults(t *testing.T) {
	cfg := FromConfig(config.Config{CacheSync: config.CacheSyncConfig{Enabled: true, Timeout: 10 * time.Minute}})
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, DefaultLockKey, cfg.LockKey)
	assert.Equal(t, 10*time.Minute, cfg.LockTTL)

	assert.Nil(t, NewRedisLocker(config.Config{}))
}

// slowSyncer holds SyncAll open until release is closed, ignoring cancellation.
type slowSyncer struct {
	entered  chan struct{}
	release  chan struct{}
	returned atomic.Bool
}

func (s *slowSyncer) SyncAll(ctx context.Context, trigger string) ([]*domain.SyncRun, error) {
	close(s.entered)
	<-s.release
	s.returned.Store(true)
	return nil, ctx.Err()
}

func TestStopWaitsForInFlightRefresh(t *testing.T) {
	s := &slowSyncer{entered: make(chan struct{}), release: make(chan struct{})}
	w := newTestWorker(t, s, nil)

	w.Start()
	w.Start()
	<-s.entered

	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("stop returned while a refresh was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(s.release)
	require.NoError(t, <-stopped)
	assert.True(t, s.returned.Load())
	assert.NoError(t, w.Stop(context.Background()))
}

func TestStopGivesUpWhenContextEnds(t *testing.T) {
	s := &slowSyncer{entered: make(chan struct{}), release: make(chan struct{})}
	// The loop outlives the test, so it must not log through t.
	w := NewWorker(Params{
		Syncer: s,
		Log:    zap.NewNop(),
		Clock:  clock.NewSystemClock(),
		Config: Config{Enabled: true, Interval: time.Hour, Timeout: time.Second},
	})
	t.Cleanup(func() { close(s.release) })

	w.Start()
	<-s.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded)
	assert.False(t, s.returned.Load())
}
