package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

type failure struct {
	task *Task
	err  error
}

type chanSink struct {
	ch chan failure
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan failure, 10)}
}

func (s *chanSink) RecordFailure(_ context.Context, task *Task, err error) error {
	s.ch <- failure{task: task, err: err}
	return nil
}

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestQueue(t *testing.T, path string, fc *clock.FakeClock, sink FailureSink) (*Queue, *TaskStore) {
	t.Helper()
	if path == "" {
		path = filepath.Join(t.TempDir(), "tasks.db")
	}
	store, err := OpenTaskStore(path)
	require.NoError(t, err)

	q := NewQueue(store, fc, sink, Options{MaxRetries: 3, Backoff: time.Second, Workers: 2})
	return q, store
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func assertNothing[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func waitArmed(t *testing.T, fc *clock.FakeClock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return fc.Pending() == n }, 2*time.Second, 5*time.Millisecond)
}

func waitDrained(t *testing.T, store *TaskStore) {
	t.Helper()
	require.Eventually(t, func() bool {
		tasks, err := store.List()
		return err == nil && len(tasks) == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestQueueRunsTaskAtETA(t *testing.T) {
	fc := clock.Fake(epoch)
	q, store := newTestQueue(t, "", fc, newChanSink())
	defer store.Close()
	defer q.Stop()

	ran := make(chan string, 1)
	q.Register("greet", func(ctx context.Context, task *Task) error {
		ran <- task.Arg(0)
		return nil
	})
	q.Start()

	task, err := q.Enqueue(context.Background(), "greet", []string{"hello"}, epoch.Add(time.Hour))
	require.NoError(t, err)

	stored, err := store.Get(task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"hello"}, stored.Args)

	assertNothing(t, ran)
	fc.Advance(time.Hour)
	assert.Equal(t, "hello", receive(t, ran))
	waitDrained(t, store)
}

func TestQueueRetriesTransientErrorsWithBackoff(t *testing.T) {
	fc := clock.Fake(epoch)
	sink := newChanSink()
	q, store := newTestQueue(t, "", fc, sink)
	defer store.Close()
	defer q.Stop()

	attempts := make(chan time.Time, 10)
	q.Register("flaky", func(ctx context.Context, task *Task) error {
		attempts <- fc.Now()
		return domain.Wrap(domain.ErrLockTimeout, "busy")
	})
	q.Start()

	_, err := q.Enqueue(context.Background(), "flaky", []string{"x"}, epoch)
	require.NoError(t, err)
	assert.Equal(t, epoch, receive(t, attempts))

	for _, backoff := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		waitArmed(t, fc, 1)
		fc.Advance(backoff - time.Millisecond)
		assertNothing(t, attempts)
		fc.Advance(time.Millisecond)
		receive(t, attempts)
	}

	dead := receive(t, sink.ch)
	assert.ErrorIs(t, dead.err, domain.ErrLockTimeout)
	assert.Equal(t, 3, dead.task.Retries)
	assert.Len(t, dead.task.History, 4)
	waitDrained(t, store)
	assertNothing(t, attempts)
}

func TestQueueDoesNotRetryDomainErrors(t *testing.T) {
	fc := clock.Fake(epoch)
	sink := newChanSink()
	q, store := newTestQueue(t, "", fc, sink)
	defer store.Close()
	defer q.Stop()

	var calls int32
	q.Register("strict", func(ctx context.Context, task *Task) error {
		atomic.AddInt32(&calls, 1)
		return domain.ErrNotFoundTicket
	})
	q.Start()

	_, err := q.Enqueue(context.Background(), "strict", []string{"t1"}, epoch)
	require.NoError(t, err)

	dead := receive(t, sink.ch)
	assert.ErrorIs(t, dead.err, domain.ErrNotFoundTicket)
	assert.Zero(t, dead.task.Retries)
	waitDrained(t, store)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Zero(t, fc.Pending())
}

func TestQueueRecordsUnknownAndPanickingTasks(t *testing.T) {
	fc := clock.Fake(epoch)
	sink := newChanSink()
	q, store := newTestQueue(t, "", fc, sink)
	defer store.Close()
	defer q.Stop()

	q.Register("explode", func(ctx context.Context, task *Task) error {
		panic("boom")
	})
	q.Start()

	_, err := q.Enqueue(context.Background(), "missing", nil, epoch)
	require.NoError(t, err)
	dead := receive(t, sink.ch)
	assert.True(t, errors.Is(dead.err, ErrUnknownTask))

	_, err = q.Enqueue(context.Background(), "explode", nil, epoch)
	require.NoError(t, err)
	dead = receive(t, sink.ch)
	assert.Contains(t, dead.err.Error(), "boom")
	waitDrained(t, store)
}

func TestQueueRestoresPersistedTasks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	fc := clock.Fake(epoch)

	first, store := newTestQueue(t, path, fc, nil)
	first.Start()
	_, err := first.Enqueue(context.Background(), "later", []string{"t1"}, epoch.Add(time.Hour))
	require.NoError(t, err)
	first.Stop()
	require.NoError(t, store.Close())

	_, err = first.Enqueue(context.Background(), "later", []string{"t2"}, epoch)
	assert.ErrorIs(t, err, ErrQueueStopped)

	second, store := newTestQueue(t, path, fc, nil)
	defer store.Close()
	defer second.Stop()

	ran := make(chan string, 1)
	second.Register("later", func(ctx context.Context, task *Task) error {
		ran <- task.Arg(0)
		return nil
	})
	second.Start()

	n, err := second.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fc.Advance(time.Hour)
	assert.Equal(t, "t1", receive(t, ran))
	waitDrained(t, store)
}
