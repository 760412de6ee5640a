package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "traveller")

	_, err := env.ledgerSvc.Earn(context.Background(), LedgerEntry{UserID: user.ID, Amount: 0, Reason: domain.ReasonEtc})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.ledgerSvc.Spend(context.Background(), LedgerEntry{UserID: user.ID, Amount: -5, Reason: domain.ReasonEtc})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestLedgerChainsBalances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "traveller")

	earned, err := env.ledgerSvc.Earn(ctx, LedgerEntry{UserID: user.ID, Amount: 200, Reason: domain.ReasonEtc})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), earned.BalanceBefore)
	assert.Equal(t, int64(1200), earned.BalanceAfter)
	assert.True(t, earned.IsConsistent())
	assert.Nil(t, earned.IdempotencyKey)

	spent, err := env.ledgerSvc.Spend(ctx, LedgerEntry{UserID: user.ID, Amount: 1200, Reason: domain.ReasonEtc})
	require.NoError(t, err)
	assert.Equal(t, int64(0), spent.BalanceAfter)

	_, err = env.ledgerSvc.Spend(ctx, LedgerEntry{UserID: user.ID, Amount: 1, Reason: domain.ReasonEtc})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	rows, total, err := env.ledgerSvc.History(ctx, user.ID, repositories.TransactionFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, row := range rows {
		assert.Equal(t, domain.TransactionCompleted, row.Status)
		assert.True(t, row.IsConsistent())
	}

	r, err := env.ledgerSvc.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, int64(0), r.Ledger)
}

func TestLedgerDeduplicatesByReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "traveller")

	entry := LedgerEntry{
		UserID:        user.ID,
		Amount:        50,
		Reason:        domain.ReasonDiary,
		ReferenceType: domain.RefDiaries,
		ReferenceID:   models.NewID(),
	}
	_, err := env.ledgerSvc.Earn(ctx, entry)
	require.NoError(t, err)
	_, err = env.ledgerSvc.Earn(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrDuplicatedReward)

	exists, err := env.ledgerSvc.ExistsByReference(ctx, domain.RefDiaries, entry.ReferenceID, domain.ReasonDiary)
	require.NoError(t, err)
	assert.True(t, exists)

	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), balance)
}

func TestLedgerConcurrentSpendsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "traveller")

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.ledgerSvc.Spend(ctx, LedgerEntry{UserID: user.ID, Amount: 300, Reason: domain.ReasonEtc})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 3, ok)

	r, err := env.ledgerSvc.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.Equal(t, int64(100), r.Cached)
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "traveller")

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Update("current_points", 5).Error)

	r, err := env.ledgerSvc.Reconcile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, r.Consistent)
	assert.Equal(t, int64(1000), r.Ledger)
}

func TestRegisterIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := models.NewID()

	user, err := env.userSvc.Register(ctx, id, "  traveller ")
	require.NoError(t, err)
	assert.Equal(t, "traveller", user.Nickname)
	assert.Equal(t, int64(1000), user.CurrentPoints)

	again, err := env.userSvc.Register(ctx, id, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "traveller", again.Nickname)
	assert.Equal(t, int64(1000), again.CurrentPoints)

	signup := domain.ReasonSignedUp
	_, total, err := env.ledgerSvc.History(ctx, id, repositories.TransactionFilter{Reason: &signup}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = env.userSvc.Register(ctx, models.NewID(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.userSvc.Me(ctx, models.NewID())
	assert.ErrorIs(t, err, domain.ErrNotFoundUser)
}

func TestWriteDiaryRewardsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	other := env.register(t, "other")
	stay, err := env.staySvc.CheckIn(ctx, env.arrivedTicket(t, user.ID).ID)
	require.NoError(t, err)

	input := &DiaryInput{RoomStayID: stay.ID, Title: "first night", Content: "quiet room", Mood: "calm"}

	_, err = env.rewardSvc.WriteDiary(ctx, other.ID, input)
	assert.ErrorIs(t, err, domain.ErrForbiddenRoomStay)

	diary, err := env.rewardSvc.WriteDiary(ctx, user.ID, input)
	require.NoError(t, err)
	assert.Equal(t, env.city.ID, diary.CityID)

	_, err = env.rewardSvc.WriteDiary(ctx, user.ID, input)
	assert.ErrorIs(t, err, domain.ErrDuplicatedDiary)

	// 1000 - 300 ticket + 50 diary
	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), balance)

	_, err = env.rewardSvc.GrantDiaryReward(ctx, diary)
	assert.ErrorIs(t, err, domain.ErrDuplicatedReward)

	diaries, total, err := env.rewardSvc.ListDiaries(ctx, user.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, diary.ID, diaries[0].ID)

	_, err = env.rewardSvc.WriteDiary(ctx, user.ID, &DiaryInput{RoomStayID: stay.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
