package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrLockInsideTransaction is returned when a scope lock is requested while
// a transaction is already open. Locks are always taken before the
// transaction begins.
var ErrLockInsideTransaction = errors.New("exclusive lock requested inside an open transaction")

type txKey struct{}

// withTx stores the open transaction in ctx
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// txFrom returns the transaction carried by ctx, if any
func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	_, ok := txFrom(ctx)
	return ok
}

// conn returns the transaction in ctx or the root handle
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// UnitOfWork runs a logical operation inside a single database transaction
type UnitOfWork struct {
	db          *gorm.DB
	locker      Locker
	lockTimeout time.Duration
}

// NewUnitOfWork creates a new unit of work
func NewUnitOfWork(db *gorm.DB, locker Locker, lockTimeout time.Duration) *UnitOfWork {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if lockTimeout <= 0 {
		lockTimeout = 10 * time.Second
	}
	return &UnitOfWork{db: db, locker: locker, lockTimeout: lockTimeout}
}

// Do runs fn in a transaction. Nested calls join the outer transaction.
// Any error from fn rolls everything back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

// WithExclusiveLock serializes fn against every other caller using the same
// scope key, then runs it in a transaction. The lock is released after the
// transaction commits or rolls back.
func (u *UnitOfWork) WithExclusiveLock(ctx context.Context, scopeKey string, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return ErrLockInsideTransaction
	}

	lockCtx, cancel := context.WithTimeout(ctx, u.lockTimeout)
	defer cancel()

	unlock, err := u.locker.Lock(lockCtx, scopeKey)
	if err != nil {
		return err
	}
	defer unlock()

	return u.Do(ctx, fn)
}
