package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

func TestPurchaseBoardsAndSchedules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sched := &recordingScheduler{scheduled: map[string]time.Time{}}
	env.ticketSvc.SetScheduler(sched)

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketBoarding, ticket.Status)
	assert.Equal(t, int64(300), ticket.CostPoints)
	assert.Equal(t, env.city.Name, ticket.City.Name)
	assert.Equal(t, ticket.ArrivalDatetime, sched.scheduled[ticket.ID])

	boarding, err := env.ticketSvc.CurrentBoarding(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, boarding.ID)

	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)
}

func TestPurchaseSnapshotsCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	require.NoError(t, env.db.Model(env.city).Update("base_cost_points", 999).Error)

	reloaded, err := env.ticketSvc.Get(ctx, user.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), reloaded.City.BaseCostPoints)
	assert.Equal(t, int64(300), reloaded.CostPoints)
}

func TestPurchaseValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "traveller")

	_, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: models.NewID(), VehicleID: env.vehicle.ID})
	assert.ErrorIs(t, err, domain.ErrNotFoundCity)

	closed := &models.City{Name: "Closed", BaseCostPoints: 300, BaseDurationHours: 24, IsActive: false}
	require.NoError(t, env.db.Create(closed).Error)
	_, err = env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: closed.ID, VehicleID: env.vehicle.ID})
	assert.ErrorIs(t, err, domain.ErrInactiveResource)

	_, err = env.ticketSvc.Purchase(ctx, models.NewID(), &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	assert.ErrorIs(t, err, domain.ErrNotFoundUser)
}

func TestPurchaseInsufficientBalanceLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pricey := &models.Vehicle{Name: "Luxury", CostFactor: 5, DurationFactor: 1, IsActive: true}
	require.NoError(t, env.db.Create(pricey).Error)

	user := env.register(t, "traveller")
	_, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: pricey.ID})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	tickets, total, err := env.ticketSvc.ListByUser(ctx, user.ID, nil, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, tickets)

	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestCancelRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	cancelled, err := env.ticketSvc.Cancel(ctx, user.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelled, cancelled.Status)

	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	refund := domain.ReasonRefund
	rows, total, err := env.ledgerSvc.History(ctx, user.ID, repositories.TransactionFilter{Reason: &refund}, 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, int64(700), rows[0].BalanceBefore)
	assert.Equal(t, int64(1000), rows[0].BalanceAfter)
	assert.Equal(t, domain.TransactionCompleted, rows[0].Status)

	_, err = env.ticketSvc.Cancel(ctx, user.ID, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketState)
}

func TestCancelRejectsOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.register(t, "owner")
	other := env.register(t, "other")
	ticket, err := env.ticketSvc.Purchase(ctx, owner.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	_, err = env.ticketSvc.Cancel(ctx, other.ID, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrForbiddenTicket)
	_, err = env.ticketSvc.Get(ctx, other.ID, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrForbiddenTicket)

	got, err := env.ticketSvc.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketBoarding, got.Status)
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	first, err := env.ticketSvc.Complete(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCompleted, first.Status)

	second, err := env.ticketSvc.Complete(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCompleted, second.Status)

	// a completed ticket can no longer be cancelled
	_, err = env.ticketSvc.Cancel(ctx, user.ID, ticket.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketState)

	_, err = env.ticketSvc.Complete(ctx, models.NewID())
	assert.ErrorIs(t, err, domain.ErrNotFoundTicket)
}

func TestCompleteLeavesCancelledTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)
	_, err = env.ticketSvc.Cancel(ctx, user.ID, ticket.ID)
	require.NoError(t, err)

	got, err := env.ticketSvc.Complete(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCancelled, got.Status)
}

func TestListByUserFiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	done := env.arrivedTicket(t, user.ID)
	stay, err := env.staySvc.CheckIn(ctx, done.ID)
	require.NoError(t, err)
	_, err = env.staySvc.CheckOut(ctx, stay.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	all, total, err := env.ticketSvc.ListByUser(ctx, user.ID, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	completed := domain.TicketCompleted
	only, total, err := env.ticketSvc.ListByUser(ctx, user.ID, &completed, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, done.ID, only[0].ID)
}

func TestListOverdueBoarding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.register(t, "traveller")
	ticket, err := env.ticketSvc.Purchase(ctx, user.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	overdue, err := env.ticketSvc.ListOverdueBoarding(ctx, env.clock.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = env.ticketSvc.ListOverdueBoarding(ctx, ticket.ArrivalDatetime.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, ticket.ID, overdue[0].ID)
}

func TestPurchaseRejectedDuringOpenTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	input := &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID}

	user := env.register(t, "traveller")
	first, err := env.ticketSvc.Purchase(ctx, user.ID, input)
	require.NoError(t, err)

	// Still boarding
	_, err = env.ticketSvc.Purchase(ctx, user.ID, input)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketState)

	// Arrived but not yet checked in
	_, err = env.ticketSvc.Complete(ctx, first.ID)
	require.NoError(t, err)
	_, err = env.ticketSvc.Purchase(ctx, user.ID, input)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketState)

	balance, err := env.ledgerSvc.Balance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)

	tickets, total, err := env.ticketSvc.ListByUser(ctx, user.ID, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, tickets, 1)
}
