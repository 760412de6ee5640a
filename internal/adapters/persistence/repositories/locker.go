package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// Locker grants exclusive access to a named scope.
// The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ============================================================
// In-process keyed mutex
// ============================================================

// KeyedMutex serializes callers per key inside one process
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*keySlot
}

type keySlot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a new keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*keySlot)}
}

// Lock blocks until key is free or ctx is done
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	slot, ok := m.slots[key]
	if !ok {
		slot = &keySlot{ch: make(chan struct{}, 1)}
		m.slots[key] = slot
	}
	slot.refs++
	m.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, slot)
		return nil, domain.Wrap(domain.ErrLockTimeout, "lock %s", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			m.release(key, slot)
		})
	}, nil
}

func (m *KeyedMutex) release(key string, slot *keySlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(m.slots, key)
	}
}

// ============================================================
// MySQL advisory lock
// ============================================================

// MySQLLocker uses GET_LOCK so that several processes sharing one MySQL
// server serialize on the same scope. Each lock pins a dedicated
// connection until it is released.
type MySQLLocker struct {
	db *gorm.DB
}

// NewMySQLLocker creates a new advisory locker
func NewMySQLLocker(db *gorm.DB) *MySQLLocker {
	return &MySQLLocker{db: db}
}

// Lock acquires the advisory lock named key
func (l *MySQLLocker) Lock(ctx context.Context, key string) (func(), error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, err
	}

	c, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	timeout := 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	seconds := int(timeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	var got sql.NullInt64
	if err := c.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", key, seconds).Scan(&got); err != nil {
		c.Close()
		if ctx.Err() != nil {
			return nil, domain.Wrap(domain.ErrLockTimeout, "lock %s", key)
		}
		return nil, fmt.Errorf("failed to acquire advisory lock %s: %w", key, err)
	}
	if !got.Valid || got.Int64 != 1 {
		c.Close()
		return nil, domain.Wrap(domain.ErrLockTimeout, "lock %s", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := c.ExecContext(context.Background(), "SELECT RELEASE_LOCK(?)", key); err != nil {
				log.Printf("⚠️ Failed to release advisory lock %s: %v", key, err)
			}
			c.Close()
		})
	}, nil
}

// ============================================================
// Chain
// ============================================================

// ChainLocker takes every lock in order and releases them in reverse
type ChainLocker []Locker

// Lock acquires all locks or none
func (c ChainLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, l := range c {
		unlock, err := l.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}
