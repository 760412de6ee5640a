package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/config"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"

	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	rules   BookingRules
	uow     *repositories.UnitOfWork
	rooms   repositories.RoomStore
	stays   repositories.RoomStayStore
	tickets repositories.TicketStore
	ledger  repositories.TransactionLedger

	ledgerSvc *PointLedgerService
	userSvc   *UserService
	ticketSvc *TicketService
	staySvc   *RoomStayService
	rewardSvc *RewardService

	city       *models.City
	vehicle    *models.Vehicle
	guestHouse *models.GuestHouse
}

type recordingScheduler struct {
	scheduled map[string]time.Time
}

func (r *recordingScheduler) ScheduleTicketCompletion(_ context.Context, ticketID string, eta time.Time) error {
	r.scheduled[ticketID] = eta
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fc := clock.Fake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := config.OpenSQLite(dsn, fc.Now)
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:      db,
		clock:   fc,
		rules:   DefaultBookingRules(),
		uow:     repositories.NewUnitOfWork(db, repositories.NewKeyedMutex(), 5*time.Second),
		rooms:   repositories.NewRoomRepository(db),
		stays:   repositories.NewRoomStayRepository(db),
		tickets: repositories.NewTicketRepository(db),
		ledger:  repositories.NewPointTransactionRepository(db),
	}

	users := repositories.NewUserRepository(db)
	catalog := repositories.NewCatalogRepository(db)
	guestHouses := repositories.NewGuestHouseRepository(db)

	env.ledgerSvc = NewPointLedgerService(env.uow, users, env.ledger)
	env.userSvc = NewUserService(env.uow, users, env.ledgerSvc, env.rules)
	env.ticketSvc = NewTicketService(env.uow, env.tickets, users, catalog, env.stays, env.ledgerSvc, fc)
	env.staySvc = NewRoomStayService(env.uow, env.stays, env.rooms, env.tickets, guestHouses, users, env.ledgerSvc, fc, env.rules)
	env.rewardSvc = NewRewardService(env.uow, repositories.NewDiaryRepository(db), env.stays, env.ledgerSvc, env.rules)

	env.city = &models.City{Name: "Serenity", Theme: "rest", BaseCostPoints: 300, BaseDurationHours: 24, IsActive: true}
	require.NoError(t, db.Create(env.city).Error)
	env.vehicle = &models.Vehicle{Name: "Breeze", CostFactor: 1, DurationFactor: 1, IsActive: true}
	require.NoError(t, db.Create(env.vehicle).Error)
	env.guestHouse = &models.GuestHouse{CityID: env.city.ID, Name: "Serenity House", IsActive: true}
	require.NoError(t, db.Create(env.guestHouse).Error)

	return env
}

// register creates a user holding the sign-up bonus
func (e *testEnv) register(t *testing.T, nickname string) *models.User {
	t.Helper()
	user, err := e.userSvc.Register(context.Background(), models.NewID(), nickname)
	require.NoError(t, err)
	return user
}

// arrivedTicket buys a ticket and completes it as the scheduler would
func (e *testEnv) arrivedTicket(t *testing.T, userID string) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := e.ticketSvc.Purchase(ctx, userID, &PurchaseInput{CityID: e.city.ID, VehicleID: e.vehicle.ID})
	require.NoError(t, err)
	ticket, err = e.ticketSvc.Complete(ctx, ticket.ID)
	require.NoError(t, err)
	return ticket
}
