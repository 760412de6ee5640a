package services

import (
	"context"
	"log"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
)

// RoomAllocator picks or creates a room with a free slot and occupies it.
//
// Allocate must run inside UnitOfWork.WithExclusiveLock keyed by the guest
// house, so that the find, create and increment steps see a stable set of
// rooms. The guarded increment still refuses to overfill a room.
type RoomAllocator struct {
	rooms       repositories.RoomStore
	maxCapacity int
}

// NewRoomAllocator creates a new allocator
func NewRoomAllocator(rooms repositories.RoomStore, maxCapacity int) *RoomAllocator {
	return &RoomAllocator{rooms: rooms, maxCapacity: maxCapacity}
}

// Allocate occupies one slot in the oldest non-full room of the guest house,
// creating a new room when all are full
func (a *RoomAllocator) Allocate(ctx context.Context, guestHouseID string) (*models.Room, error) {
	room, err := a.rooms.FindAvailableForUpdate(ctx, guestHouseID)
	if err != nil {
		return nil, err
	}

	if room == nil {
		room = models.NewRoom(guestHouseID, a.maxCapacity)
		if err := a.rooms.Create(ctx, room); err != nil {
			return nil, err
		}
		log.Printf("🏠 New room %s opened in guest house %s", room.ID, guestHouseID)
	}

	if err := a.rooms.IncrementOccupancy(ctx, room.ID); err != nil {
		return nil, err
	}
	if err := room.Occupy(); err != nil {
		return nil, err
	}

	return room, nil
}
