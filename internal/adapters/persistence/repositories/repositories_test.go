package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/config"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := config.OpenSQLite(dsn, func() time.Time { return now })
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "guest_house:a")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, m.slots)
}

func TestKeyedMutexIndependentKeysAndTimeout(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "a")
	require.NoError(t, err)

	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(timeoutCtx, "a")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.True(t, domain.IsTransient(err))

	unlockA()
	unlockA()

	unlockA, err = m.Lock(ctx, "a")
	require.NoError(t, err)
	unlockA()
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("unavailable")
}

func TestChainLockerReleasesOnFailure(t *testing.T) {
	inner := NewKeyedMutex()
	chain := ChainLocker{inner, failingLocker{}}

	_, err := chain.Lock(context.Background(), "k")
	require.Error(t, err)

	unlock, err := inner.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	db := openTestDB(t)
	uow := NewUnitOfWork(db, nil, 0)
	users := NewUserRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	id := models.NewID()
	err := uow.Do(ctx, func(ctx context.Context) error {
		require.True(t, InTransaction(ctx))
		require.NoError(t, users.Create(ctx, &models.User{ID: id, Nickname: "ghost"}))
		return uow.Do(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	user, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestWithExclusiveLockRefusesOpenTransaction(t *testing.T) {
	db := openTestDB(t)
	uow := NewUnitOfWork(db, nil, 0)

	err := uow.Do(context.Background(), func(ctx context.Context) error {
		return uow.WithExclusiveLock(ctx, "k", func(ctx context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, ErrLockInsideTransaction)

	ran := false
	err = uow.WithExclusiveLock(context.Background(), "k", func(ctx context.Context) error {
		ran = InTransaction(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRoomGuardedUpdates(t *testing.T) {
	db := openTestDB(t)
	rooms := NewRoomRepository(db)
	ctx := context.Background()
	gh := models.NewID()

	room := models.NewRoom(gh, 2)
	require.NoError(t, rooms.Create(ctx, room))

	assert.ErrorIs(t, rooms.DecrementOccupancy(ctx, room.ID), domain.ErrRoomAlreadyEmpty)
	require.NoError(t, rooms.IncrementOccupancy(ctx, room.ID))
	require.NoError(t, rooms.IncrementOccupancy(ctx, room.ID))
	assert.ErrorIs(t, rooms.IncrementOccupancy(ctx, room.ID), domain.ErrRoomCapacityExceeded)

	available, err := rooms.FindAvailableForUpdate(ctx, gh)
	require.NoError(t, err)
	assert.Nil(t, available)

	require.NoError(t, rooms.DecrementOccupancy(ctx, room.ID))
	available, err = rooms.FindAvailableForUpdate(ctx, gh)
	require.NoError(t, err)
	require.NotNil(t, available)
	assert.Equal(t, 1, available.CurrentCapacity)

	require.NoError(t, rooms.DecrementOccupancy(ctx, room.ID))
	require.NoError(t, rooms.Retire(ctx, room.ID))
	available, err = rooms.FindAvailableForUpdate(ctx, gh)
	require.NoError(t, err)
	assert.Nil(t, available)

	retired, err := rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, retired)
	assert.True(t, retired.IsDeleted())
}

func TestLedgerRepository(t *testing.T) {
	db := openTestDB(t)
	ledger := NewPointTransactionRepository(db)
	ctx := context.Background()
	userID := models.NewID()

	post := func(typ domain.TransactionType, amount int64, status domain.TransactionStatus, key string) *models.PointTransaction {
		tx := &models.PointTransaction{
			ID:     models.NewID(),
			UserID: userID,
			Type:   typ,
			Amount: amount,
			Reason: domain.ReasonEtc,
			Status: status,
		}
		if key != "" {
			tx.IdempotencyKey = &key
		}
		require.NoError(t, ledger.Create(ctx, tx))
		return tx
	}

	post(domain.TransactionEarn, 1000, domain.TransactionCompleted, "SIGNED_UP:users:"+userID)
	post(domain.TransactionSpend, 300, domain.TransactionCompleted, "")
	post(domain.TransactionEarn, 999, domain.TransactionPending, "")
	post(domain.TransactionEarn, 999, domain.TransactionFailed, "")

	sum, err := ledger.SumCompleted(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), sum)

	exists, err := ledger.ExistsByKey(ctx, "SIGNED_UP:users:"+userID)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.PointTransaction{
		ID: models.NewID(), UserID: userID, Type: domain.TransactionEarn, Amount: 1000,
		Reason: domain.ReasonSignedUp, Status: domain.TransactionPending,
	}
	key := "SIGNED_UP:users:" + userID
	dup.IdempotencyKey = &key
	assert.ErrorIs(t, ledger.Create(ctx, dup), domain.ErrDuplicatedReward)

	earn := domain.TransactionEarn
	rows, total, err := ledger.ListByUser(ctx, userID, TransactionFilter{Type: &earn}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rows, 2)
}

func TestCatalogStoresInactiveEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	catalog := NewCatalogRepository(db)

	open := &models.City{Name: "Serenity", BaseCostPoints: 300, BaseDurationHours: 24, IsActive: true}
	closed := &models.City{Name: "Etheria", BaseCostPoints: 300, BaseDurationHours: 24, IsActive: false}
	retired := &models.Vehicle{Name: "Old Airship", CostFactor: 1, DurationFactor: 1, IsActive: false}
	require.NoError(t, db.Create(open).Error)
	require.NoError(t, db.Create(closed).Error)
	require.NoError(t, db.Create(retired).Error)

	got, err := catalog.GetCity(ctx, closed.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	cities, err := catalog.ListActiveCities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, open.ID, cities[0].ID)

	vehicles, err := catalog.ListActiveVehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}
