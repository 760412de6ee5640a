package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

const checkOutBatchSize = 100

// RoomStayService handles check-in, extension and check-out
type RoomStayService struct {
	uow         *repositories.UnitOfWork
	stays       repositories.RoomStayStore
	rooms       repositories.RoomStore
	tickets     repositories.TicketStore
	guestHouses repositories.GuestHouseStore
	users       repositories.UserStore
	allocator   *RoomAllocator
	ledger      *PointLedgerService
	clock       clock.Clock
	rules       BookingRules
}

// NewRoomStayService creates a new room stay service
func NewRoomStayService(
	uow *repositories.UnitOfWork,
	stays repositories.RoomStayStore,
	rooms repositories.RoomStore,
	tickets repositories.TicketStore,
	guestHouses repositories.GuestHouseStore,
	users repositories.UserStore,
	ledger *PointLedgerService,
	clk clock.Clock,
	rules BookingRules,
) *RoomStayService {
	return &RoomStayService{
		uow:         uow,
		stays:       stays,
		rooms:       rooms,
		tickets:     tickets,
		guestHouses: guestHouses,
		users:       users,
		allocator:   NewRoomAllocator(rooms, rules.RoomMaxCapacity),
		ledger:      ledger,
		clock:       clk,
		rules:       rules,
	}
}

// CheckIn assigns the traveller of a COMPLETED ticket to a room in the
// city's guest house. Running it again for the same ticket returns the
// existing stay.
func (s *RoomStayService) CheckIn(ctx context.Context, ticketID string) (*models.RoomStay, error) {
	// 1. Ticket must exist and be COMPLETED
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFoundTicket
	}
	if ticket.Status != domain.TicketCompleted {
		return nil, domain.ErrInvalidTicketState
	}

	// 2. Already checked in with this ticket
	existing, err := s.stays.GetByTicketID(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// 3. Resolve the guest house
	gh, err := s.guestHouses.GetActiveByCity(ctx, ticket.City.CityID)
	if err != nil {
		return nil, err
	}
	if gh == nil {
		return nil, domain.ErrNotFoundGuestHouse
	}

	// 4. Allocate and assign under the guest house lock
	var stay *models.RoomStay
	err = s.uow.WithExclusiveLock(ctx, gh.LockKey(), func(ctx context.Context) error {
		again, err := s.stays.GetByTicketID(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if again != nil {
			stay = again
			return nil
		}

		// Guest house locks do not cover one user checking in to two cities
		user, err := s.users.GetByIDForUpdate(ctx, ticket.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFoundUser
		}

		active, err := s.stays.FindActiveByUser(ctx, ticket.UserID)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.Wrap(domain.ErrInvalidRoomStayState, "user %s is already staying in room %s", ticket.UserID, active.RoomID)
		}

		room, err := s.allocator.Allocate(ctx, gh.ID)
		if err != nil {
			return err
		}

		stay, err = s.Assign(ctx, ticket, room)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Checked in: user %s -> room %s (ticket %s)", stay.UserID, stay.RoomID, ticket.TicketNumber)
	return stay, nil
}

// Assign records a CHECKED_IN stay. The caller has already occupied a slot in room.
func (s *RoomStayService) Assign(ctx context.Context, ticket *models.Ticket, room *models.Room) (*models.RoomStay, error) {
	stay, err := models.NewRoomStay(ticket, room, s.clock.Now(), s.rules.StayDuration)
	if err != nil {
		return nil, err
	}
	if err := s.stays.Create(ctx, stay); err != nil {
		return nil, err
	}
	return stay, nil
}

// Extend pushes the user's stay back by one stay period for a fee.
// There is no limit on the number of extensions.
func (s *RoomStayService) Extend(ctx context.Context, userID, stayID string) (*models.RoomStay, error) {
	var stay *models.RoomStay
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		st, err := s.stays.GetByIDForUpdate(ctx, stayID)
		if err != nil {
			return err
		}
		if st == nil {
			return domain.ErrNotFoundRoomStay
		}
		if !st.IsOwnedBy(userID) {
			return domain.ErrForbiddenRoomStay
		}
		if err := st.Extend(s.rules.StayDuration); err != nil {
			return err
		}

		if _, err := s.ledger.Spend(ctx, LedgerEntry{
			UserID:         userID,
			Amount:         s.rules.ExtensionCost,
			Reason:         domain.ReasonExtension,
			ReferenceType:  domain.RefRoomStays,
			ReferenceID:    st.ID,
			IdempotencyKey: fmt.Sprintf("%s:%d", models.ReferenceKey(domain.ReasonExtension, domain.RefRoomStays, st.ID), st.ExtensionCount),
			Description:    fmt.Sprintf("stay extension #%d", st.ExtensionCount),
		}); err != nil {
			return err
		}

		stay = st
		return s.stays.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Stay extended: %s until %s (x%d)", stay.ID, stay.ScheduledCheckOutAt.Format(time.RFC3339), stay.ExtensionCount)
	return stay, nil
}

// CheckOut closes a CHECKED_IN stay and releases its slot
func (s *RoomStayService) CheckOut(ctx context.Context, stayID string) (*models.RoomStay, error) {
	return s.checkOut(ctx, "", stayID)
}

// CheckOutByUser is the user-initiated check-out
func (s *RoomStayService) CheckOutByUser(ctx context.Context, userID, stayID string) (*models.RoomStay, error) {
	if userID == "" {
		return nil, domain.ErrForbiddenRoomStay
	}
	return s.checkOut(ctx, userID, stayID)
}

func (s *RoomStayService) checkOut(ctx context.Context, userID, stayID string) (*models.RoomStay, error) {
	// The lock scope comes from the stay itself
	current, err := s.stays.GetByID(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFoundRoomStay
	}
	if userID != "" && !current.IsOwnedBy(userID) {
		return nil, domain.ErrForbiddenRoomStay
	}

	var stay *models.RoomStay
	retired := false
	err = s.uow.WithExclusiveLock(ctx, models.GuestHouseLockKey(current.GuestHouseID), func(ctx context.Context) error {
		st, err := s.stays.GetByIDForUpdate(ctx, stayID)
		if err != nil {
			return err
		}
		if st == nil {
			return domain.ErrNotFoundRoomStay
		}
		if err := st.CheckOut(s.clock.Now()); err != nil {
			return err
		}
		if err := s.stays.Update(ctx, st); err != nil {
			return err
		}

		if err := s.rooms.DecrementOccupancy(ctx, st.RoomID); err != nil {
			if errors.Is(err, domain.ErrRoomAlreadyEmpty) {
				log.Printf("🚨 Room %s was already empty while checking out stay %s", st.RoomID, st.ID)
			}
			return err
		}

		if s.rules.RetireEmptyRooms {
			room, err := s.rooms.GetByID(ctx, st.RoomID)
			if err != nil {
				return err
			}
			if room != nil && room.IsEmpty() && !room.IsDeleted() {
				if err := s.rooms.Retire(ctx, room.ID); err != nil {
					return err
				}
				retired = true
			}
		}

		stay = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("👋 Checked out: stay %s (room %s)", stay.ID, stay.RoomID)
	if retired {
		log.Printf("🏚️ Room %s retired after its last guest left", stay.RoomID)
	}
	return stay, nil
}

// CheckOutExpired checks out every stay whose scheduled time has passed.
// Failures are logged per stay and do not stop the sweep.
func (s *RoomStayService) CheckOutExpired(ctx context.Context, now time.Time) (int, error) {
	done := 0
	failed := make(map[string]bool)

	for {
		due, err := s.stays.ListDue(ctx, now, checkOutBatchSize+len(failed))
		if err != nil {
			return done, err
		}

		progressed := false
		for i := range due {
			if failed[due[i].ID] {
				continue
			}
			if _, err := s.CheckOut(ctx, due[i].ID); err != nil {
				if errors.Is(err, domain.ErrInvalidRoomStayState) {
					// checked out concurrently
					continue
				}
				log.Printf("❌ Auto check-out of stay %s failed: %v", due[i].ID, err)
				failed[due[i].ID] = true
				continue
			}
			done++
			progressed = true
		}

		if !progressed || len(due) < checkOutBatchSize+len(failed) {
			break
		}
	}

	if done > 0 {
		log.Printf("✅ Auto check-out: %d stays closed", done)
	}
	return done, nil
}

// RoomMembers lists everyone staying in a room the user is also staying in
func (s *RoomStayService) RoomMembers(ctx context.Context, userID, roomID string) ([]models.RoomStay, error) {
	stays, err := s.stays.ListActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for i := range stays {
		if stays[i].UserID == userID {
			return stays, nil
		}
	}
	return nil, domain.ErrForbiddenRoomAccess
}

// Current returns the user's active stay
func (s *RoomStayService) Current(ctx context.Context, userID string) (*models.RoomStay, error) {
	stay, err := s.stays.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stay == nil {
		return nil, domain.ErrNotFoundRoomStay
	}
	return stay, nil
}

// GetByID returns a stay
func (s *RoomStayService) GetByID(ctx context.Context, stayID string) (*models.RoomStay, error) {
	stay, err := s.stays.GetByID(ctx, stayID)
	if err != nil {
		return nil, err
	}
	if stay == nil {
		return nil, domain.ErrNotFoundRoomStay
	}
	return stay, nil
}
