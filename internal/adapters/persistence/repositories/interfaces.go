package repositories

import (
	"context"
	"time"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// Every store reads the open transaction from ctx when there is one.
// Lookups return (nil, nil) when the row does not exist.

// UserStore defines user repository interface
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	UpdatePoints(ctx context.Context, id string, points int64) error
	UpdateNickname(ctx context.Context, id, nickname string) error
}

// CatalogStore defines read access to cities and vehicles
type CatalogStore interface {
	GetCity(ctx context.Context, id string) (*models.City, error)
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListActiveCities(ctx context.Context) ([]models.City, error)
	ListActiveVehicles(ctx context.Context) ([]models.Vehicle, error)
}

// GuestHouseStore defines guest house repository interface
type GuestHouseStore interface {
	Create(ctx context.Context, gh *models.GuestHouse) error
	GetByID(ctx context.Context, id string) (*models.GuestHouse, error)
	GetActiveByCity(ctx context.Context, cityID string) (*models.GuestHouse, error)
}

// RoomStore defines room repository interface.
// Capacity changes are guarded updates and must run under the guest house lock.
type RoomStore interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	FindAvailableForUpdate(ctx context.Context, guestHouseID string) (*models.Room, error)
	IncrementOccupancy(ctx context.Context, id string) error
	DecrementOccupancy(ctx context.Context, id string) error
	Retire(ctx context.Context, id string) error
	ListByGuestHouse(ctx context.Context, guestHouseID string) ([]models.Room, error)
}

// TicketFilter narrows ticket listings
type TicketFilter struct {
	Status *domain.TicketStatus
}

// TicketStore defines ticket repository interface
type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, ticket *models.Ticket) error
	ListByUser(ctx context.Context, userID string, filter TicketFilter, offset, limit int) ([]models.Ticket, int64, error)
	FindBoardingByUser(ctx context.Context, userID string) (*models.Ticket, error)
	FindAwaitingCheckInByUser(ctx context.Context, userID string) (*models.Ticket, error)
	ListOverdueBoarding(ctx context.Context, arrivedBefore time.Time, limit int) ([]models.Ticket, error)
}

// RoomStayStore defines room stay repository interface
type RoomStayStore interface {
	Create(ctx context.Context, stay *models.RoomStay) error
	GetByID(ctx context.Context, id string) (*models.RoomStay, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.RoomStay, error)
	GetByTicketID(ctx context.Context, ticketID string) (*models.RoomStay, error)
	FindActiveByUser(ctx context.Context, userID string) (*models.RoomStay, error)
	ListActiveByRoom(ctx context.Context, roomID string) ([]models.RoomStay, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.RoomStay, error)
	Update(ctx context.Context, stay *models.RoomStay) error
}

// TransactionFilter narrows ledger listings
type TransactionFilter struct {
	Type   *domain.TransactionType
	Reason *domain.TransactionReason
}

// TransactionLedger defines point transaction repository interface.
// Rows are inserted and finalized, never rewritten.
type TransactionLedger interface {
	Create(ctx context.Context, tx *models.PointTransaction) error
	UpdateStatus(ctx context.Context, tx *models.PointTransaction) error
	ExistsByKey(ctx context.Context, key string) (bool, error)
	ExistsByReference(ctx context.Context, refType domain.ReferenceType, refID string, reason domain.TransactionReason) (bool, error)
	SumCompleted(ctx context.Context, userID string) (int64, error)
	ListByUser(ctx context.Context, userID string, filter TransactionFilter, offset, limit int) ([]models.PointTransaction, int64, error)
}

// DiaryStore defines diary repository interface
type DiaryStore interface {
	Create(ctx context.Context, diary *models.Diary) error
	GetByRoomStay(ctx context.Context, roomStayID string) (*models.Diary, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]models.Diary, int64, error)
}

// TaskFailureLogStore defines task failure log repository interface
type TaskFailureLogStore interface {
	Create(ctx context.Context, entry *models.TaskFailureLog) error
	ListRecent(ctx context.Context, limit int) ([]models.TaskFailureLog, error)
}
