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

func TestAdminDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	failures := repositories.NewTaskFailureLogRepository(env.db)
	dashboard := NewDashboardService(env.db, failures, env.ledgerSvc, env.clock)

	for i := 0; i < 2; i++ {
		user := env.register(t, "resident")
		_, err := env.staySvc.CheckIn(ctx, env.arrivedTicket(t, user.ID).ID)
		require.NoError(t, err)
	}
	traveller := env.register(t, "traveller")
	_, err := env.ticketSvc.Purchase(ctx, traveller.ID, &PurchaseInput{CityID: env.city.ID, VehicleID: env.vehicle.ID})
	require.NoError(t, err)

	require.NoError(t, failures.Create(ctx, &models.TaskFailureLog{TaskID: "t-1", TaskName: "check_in", ErrorMessage: "boom"}))

	data, err := dashboard.GetAdminDashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, data.TotalUsers)
	assert.EqualValues(t, 2100, data.PointsInCirculation)
	assert.EqualValues(t, 2, data.TicketsByStatus[domain.TicketCompleted])
	assert.EqualValues(t, 1, data.TicketsByStatus[domain.TicketBoarding])
	assert.EqualValues(t, 2, data.ActiveStays)
	assert.Zero(t, data.OverdueStays)
	assert.Zero(t, data.OverdueBoarding)
	require.Len(t, data.GuestHouses, 1)
	assert.EqualValues(t, 1, data.GuestHouses[0].OpenRooms)
	assert.EqualValues(t, 2, data.GuestHouses[0].Occupants)
	assert.EqualValues(t, 6, data.GuestHouses[0].Capacity)
	require.Len(t, data.RecentFailures, 1)
	assert.Equal(t, "check_in", data.RecentFailures[0].TaskName)

	// Past both the stay end and the traveller's arrival
	env.clock.Advance(25 * time.Hour)
	data, err = dashboard.GetAdminDashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, data.OverdueStays)
	assert.EqualValues(t, 1, data.OverdueBoarding)
}

func TestDashboardReconcileUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dashboard := NewDashboardService(env.db, repositories.NewTaskFailureLogRepository(env.db), env.ledgerSvc, env.clock)

	user := env.register(t, "checked")
	r, err := dashboard.ReconcileUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, r.Consistent)
	assert.EqualValues(t, 1000, r.Cached)

	_, err = dashboard.ReconcileUser(ctx, models.NewID())
	assert.ErrorIs(t, err, domain.ErrNotFoundUser)
}
