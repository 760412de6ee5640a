// Package worker runs deferred tasks with at-least-once delivery: tasks are
// persisted before they are armed and acknowledged only after their handler
// returns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

// ErrQueueStopped is returned by Enqueue after Stop
var ErrQueueStopped = errors.New("task queue is stopped")

// ErrUnknownTask is recorded when no handler is registered for a task name
var ErrUnknownTask = errors.New("no handler registered for task")

// Task is one unit of deferred work
type Task struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Args      []string          `json:"args"`
	Kwargs    map[string]string `json:"kwargs,omitempty"`
	ETA       time.Time         `json:"eta"`
	Retries   int               `json:"retries"`
	History   []string          `json:"history,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Arg returns the positional argument at i or ""
func (t *Task) Arg(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return t.Args[i]
}

// Handler executes a task. Returning an error classified by
// domain.IsTransient schedules a retry; any other error is final.
type Handler func(ctx context.Context, task *Task) error

// FailureSink receives tasks that will not be tried again
type FailureSink interface {
	RecordFailure(ctx context.Context, task *Task, err error) error
}

// Options tunes retries and concurrency
type Options struct {
	MaxRetries int
	Backoff    time.Duration
	Workers    int
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// Queue dispatches persisted tasks to a bounded pool of workers
type Queue struct {
	store *TaskStore
	clock clock.Clock
	sink  FailureSink
	opts  Options

	mu       sync.Mutex
	handlers map[string]Handler
	timers   map[string]clock.Timer
	stopped  bool

	jobs   chan *Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	start  sync.Once
}

// NewQueue creates a new queue. Call Start to begin processing.
func NewQueue(store *TaskStore, clk clock.Clock, sink FailureSink, opts Options) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:    store,
		clock:    clk,
		sink:     sink,
		opts:     opts.withDefaults(),
		handlers: make(map[string]Handler),
		timers:   make(map[string]clock.Timer),
		jobs:     make(chan *Task),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register binds a handler to a task name
func (q *Queue) Register(name string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = h
}

// Start launches the worker pool
func (q *Queue) Start() {
	q.start.Do(func() {
		for i := 0; i < q.opts.Workers; i++ {
			q.wg.Add(1)
			go q.work()
		}
		log.Printf("🚀 Task queue started (%d workers)", q.opts.Workers)
	})
}

// Stop disarms timers and waits for running handlers to return.
// Unfinished tasks stay in the store for Restore.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for id, t := range q.timers {
		if t != nil {
			t.Stop()
		}
		delete(q.timers, id)
	}
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	log.Println("🛑 Task queue stopped")
}

// Enqueue persists a task and arms it for eta
func (q *Queue) Enqueue(ctx context.Context, name string, args []string, eta time.Time) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	task := &Task{
		ID:        uuid.NewString(),
		Name:      name,
		Args:      args,
		ETA:       eta,
		CreatedAt: q.clock.Now(),
	}

	q.mu.Lock()
	stopped := q.stopped
	q.mu.Unlock()
	if stopped {
		return nil, ErrQueueStopped
	}

	if err := q.store.Put(task); err != nil {
		return nil, fmt.Errorf("failed to persist task %s: %w", name, err)
	}
	q.arm(task)
	return task, nil
}

// Restore re-arms every task left in the store by a previous process
func (q *Queue) Restore(ctx context.Context) (int, error) {
	tasks, err := q.store.List()
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		q.arm(task)
	}
	if len(tasks) > 0 {
		log.Printf("♻️ Restored %d pending tasks", len(tasks))
	}
	return len(tasks), nil
}

// Pending returns the tasks that have not been acknowledged
func (q *Queue) Pending() ([]*Task, error) {
	return q.store.List()
}

func (q *Queue) arm(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	if old := q.timers[task.ID]; old != nil {
		old.Stop()
	}

	delay := task.ETA.Sub(q.clock.Now())
	// AfterFunc may fire on this goroutine
	q.timers[task.ID] = nil
	q.mu.Unlock()
	timer := q.clock.AfterFunc(delay, func() { q.dispatch(task) })
	q.mu.Lock()
	if _, ok := q.timers[task.ID]; ok {
		q.timers[task.ID] = timer
	}
}

func (q *Queue) dispatch(task *Task) {
	go func() {
		select {
		case q.jobs <- task:
		case <-q.ctx.Done():
		}
	}()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case task := <-q.jobs:
			q.run(task)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) run(task *Task) {
	q.mu.Lock()
	delete(q.timers, task.ID)
	h, ok := q.handlers[task.Name]
	q.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownTask, task.Name)
	} else {
		err = q.invoke(h, task)
	}

	if err == nil {
		if delErr := q.store.Delete(task.ID); delErr != nil {
			log.Printf("⚠️ Failed to ack task %s: %v", task.ID, delErr)
		}
		return
	}

	task.History = append(task.History, fmt.Sprintf("attempt %d at %s: %v",
		task.Retries+1, q.clock.Now().UTC().Format(time.RFC3339), err))

	if domain.IsTransient(err) && task.Retries < q.opts.MaxRetries {
		delay := q.opts.Backoff << task.Retries
		task.Retries++
		task.ETA = q.clock.Now().Add(delay)
		if putErr := q.store.Put(task); putErr != nil {
			log.Printf("⚠️ Failed to persist retry of task %s: %v", task.ID, putErr)
		}
		log.Printf("🔁 Task %s[%s] failed (%v), retry %d/%d in %s",
			task.Name, task.ID, err, task.Retries, q.opts.MaxRetries, delay)
		q.arm(task)
		return
	}

	log.Printf("❌ Task %s[%s] failed permanently: %v", task.Name, task.ID, err)
	if q.sink != nil {
		if sinkErr := q.sink.RecordFailure(context.WithoutCancel(q.ctx), task, err); sinkErr != nil {
			log.Printf("🚨 Failed to record failure of task %s: %v", task.ID, sinkErr)
		}
	}
	if delErr := q.store.Delete(task.ID); delErr != nil {
		log.Printf("⚠️ Failed to ack task %s: %v", task.ID, delErr)
	}
}

func (q *Queue) invoke(h Handler, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	// running handlers finish even while the queue is stopping
	return h(context.WithoutCancel(q.ctx), task)
}
