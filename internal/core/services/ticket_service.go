package services

import (
	"context"
	"log"
	"time"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

// TicketService owns the ticket state machine:
// PURCHASED -> BOARDING -> COMPLETED, PURCHASED|BOARDING -> CANCELLED
type TicketService struct {
	uow       *repositories.UnitOfWork
	tickets   repositories.TicketStore
	users     repositories.UserStore
	catalog   repositories.CatalogStore
	stays     repositories.RoomStayStore
	ledger    *PointLedgerService
	scheduler TaskScheduler
	clock     clock.Clock
}

// NewTicketService creates a new ticket service
func NewTicketService(
	uow *repositories.UnitOfWork,
	tickets repositories.TicketStore,
	users repositories.UserStore,
	catalog repositories.CatalogStore,
	stays repositories.RoomStayStore,
	ledger *PointLedgerService,
	clk clock.Clock,
) *TicketService {
	return &TicketService{
		uow:     uow,
		tickets: tickets,
		users:   users,
		catalog: catalog,
		stays:   stays,
		ledger:  ledger,
		clock:   clk,
	}
}

// SetScheduler wires the background scheduler. Without one, completion only
// happens through the overdue-ticket recovery sweep.
func (s *TicketService) SetScheduler(scheduler TaskScheduler) {
	s.scheduler = scheduler
}

// PurchaseInput represents ticket purchase request
type PurchaseInput struct {
	CityID    string `json:"city_id"`
	VehicleID string `json:"vehicle_id"`
}

// Purchase debits the cost and boards the user immediately.
// Completion is scheduled for the arrival time after commit.
func (s *TicketService) Purchase(ctx context.Context, userID string, input *PurchaseInput) (*models.Ticket, error) {
	if input == nil || input.CityID == "" || input.VehicleID == "" {
		return nil, domain.ErrInvalidInput
	}

	var ticket *models.Ticket
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		// 1. Validate user. The row lock serializes purchases with check-ins.
		user, err := s.users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFoundUser
		}
		if err := s.ensureNoOpenTrip(ctx, user.ID); err != nil {
			return err
		}

		// 2. Validate city
		city, err := s.catalog.GetCity(ctx, input.CityID)
		if err != nil {
			return err
		}
		if city == nil {
			return domain.ErrNotFoundCity
		}
		if !city.IsActive {
			return domain.Wrap(domain.ErrInactiveResource, "city %s", city.ID)
		}

		// 3. Validate vehicle
		vehicle, err := s.catalog.GetVehicle(ctx, input.VehicleID)
		if err != nil {
			return err
		}
		if vehicle == nil {
			return domain.ErrNotFoundVehicle
		}
		if !vehicle.IsActive {
			return domain.Wrap(domain.ErrInactiveResource, "vehicle %s", vehicle.ID)
		}

		// 4. Build the ticket with frozen snapshots and cost
		ticket = models.NewTicket(user.ID, models.SnapshotCity(city), models.SnapshotVehicle(vehicle), s.clock.Now())

		// 5. Debit (locks the user row, checks the balance)
		if _, err := s.ledger.Spend(ctx, LedgerEntry{
			UserID:        user.ID,
			Amount:        ticket.CostPoints,
			Reason:        domain.ReasonTicket,
			ReferenceType: domain.RefTickets,
			ReferenceID:   ticket.ID,
			Description:   "ticket to " + city.Name,
		}); err != nil {
			return err
		}

		// 6. Persist PURCHASED, then board right away
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if err := ticket.Consume(); err != nil {
			return err
		}
		return s.tickets.UpdateStatus(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Ticket purchased: %s (User: %s, City: %s, Cost: %d)",
		ticket.TicketNumber, userID, ticket.City.Name, ticket.CostPoints)

	// 7. Schedule completion at arrival. A lost schedule is recovered by the sweeper.
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleTicketCompletion(ctx, ticket.ID, ticket.ArrivalDatetime); err != nil {
			log.Printf("⚠️ Failed to schedule completion of ticket %s: %v", ticket.ID, err)
		}
	}

	return ticket, nil
}

// ensureNoOpenTrip rejects a purchase while an earlier ticket is still on its
// way to a stay or the user is checked in somewhere
func (s *TicketService) ensureNoOpenTrip(ctx context.Context, userID string) error {
	boarding, err := s.tickets.FindBoardingByUser(ctx, userID)
	if err != nil {
		return err
	}
	if boarding != nil {
		return domain.Wrap(domain.ErrInvalidTicketState, "ticket %s is still boarding", boarding.ID)
	}

	arrived, err := s.tickets.FindAwaitingCheckInByUser(ctx, userID)
	if err != nil {
		return err
	}
	if arrived != nil {
		return domain.Wrap(domain.ErrInvalidTicketState, "ticket %s is waiting for check-in", arrived.ID)
	}

	stay, err := s.stays.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if stay != nil {
		return domain.Wrap(domain.ErrInvalidRoomStayState, "already staying in room %s", stay.RoomID)
	}
	return nil
}

// Complete moves BOARDING -> COMPLETED. A ticket that is already COMPLETED
// or CANCELLED is returned unchanged so redelivered tasks are harmless.
func (s *TicketService) Complete(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	changed := false

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		t, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFoundTicket
		}
		ticket = t

		if t.Status.IsFinal() {
			return nil
		}
		if err := t.Complete(); err != nil {
			return err
		}
		changed = true
		return s.tickets.UpdateStatus(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Printf("✅ Ticket completed: %s", ticket.TicketNumber)
	}
	return ticket, nil
}

// Cancel cancels the user's own PURCHASED or BOARDING ticket and refunds it
func (s *TicketService) Cancel(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	var ticket *models.Ticket
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		t, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFoundTicket
		}
		if !t.IsOwnedBy(userID) {
			return domain.ErrForbiddenTicket
		}
		if err := t.Cancel(); err != nil {
			return err
		}
		if err := s.tickets.UpdateStatus(ctx, t); err != nil {
			return err
		}

		if _, err := s.ledger.Earn(ctx, LedgerEntry{
			UserID:        userID,
			Amount:        t.CostPoints,
			Reason:        domain.ReasonRefund,
			ReferenceType: domain.RefTickets,
			ReferenceID:   t.ID,
			Description:   "refund of " + t.TicketNumber,
		}); err != nil {
			return err
		}

		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Ticket cancelled: %s (refunded %d)", ticket.TicketNumber, ticket.CostPoints)
	return ticket, nil
}

// Get returns the user's own ticket
func (s *TicketService) Get(ctx context.Context, userID, ticketID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFoundTicket
	}
	if !ticket.IsOwnedBy(userID) {
		return nil, domain.ErrForbiddenTicket
	}
	return ticket, nil
}

// GetByID returns any ticket; used by background tasks
func (s *TicketService) GetByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFoundTicket
	}
	return ticket, nil
}

// ListByUser lists the user's tickets, optionally by status
func (s *TicketService) ListByUser(ctx context.Context, userID string, status *domain.TicketStatus, offset, limit int) ([]models.Ticket, int64, error) {
	return s.tickets.ListByUser(ctx, userID, repositories.TicketFilter{Status: status}, offset, limit)
}

// CurrentBoarding returns the ticket the user is travelling on
func (s *TicketService) CurrentBoarding(ctx context.Context, userID string) (*models.Ticket, error) {
	ticket, err := s.tickets.FindBoardingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFoundTicket
	}
	return ticket, nil
}

// ListOverdueBoarding returns BOARDING tickets whose arrival is before the cutoff
func (s *TicketService) ListOverdueBoarding(ctx context.Context, arrivedBefore time.Time, limit int) ([]models.Ticket, error) {
	return s.tickets.ListOverdueBoarding(ctx, arrivedBefore, limit)
}
