package repositories

import (
	"context"
	"errors"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *gorm.DB) RoomStore {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return conn(ctx, r.db).Create(room).Error
}

// GetByID includes retired rooms so past stays still resolve
func (r *roomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := conn(ctx, r.db).Unscoped().Where("id = ?", id).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// FindAvailableForUpdate returns the oldest room with a free slot and locks it
func (r *roomRepository) FindAvailableForUpdate(ctx context.Context, guestHouseID string) (*models.Room, error) {
	var room models.Room
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("guest_house_id = ? AND current_capacity < max_capacity", guestHouseID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&room).Error
	if err != nil {
		return nil, err
	}
	if room.ID == "" {
		return nil, nil
	}
	return &room, nil
}

// IncrementOccupancy adds one guest unless the room is already full
func (r *roomRepository) IncrementOccupancy(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Model(&models.Room{}).
		Where("id = ? AND current_capacity < max_capacity", id).
		Update("current_capacity", gorm.Expr("current_capacity + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomCapacityExceeded
	}
	return nil
}

// DecrementOccupancy removes one guest unless the room is already empty
func (r *roomRepository) DecrementOccupancy(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Unscoped().Model(&models.Room{}).
		Where("id = ? AND current_capacity > 0", id).
		Update("current_capacity", gorm.Expr("current_capacity - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomAlreadyEmpty
	}
	return nil
}

// Retire soft-deletes the room so it is no longer allocated
func (r *roomRepository) Retire(ctx context.Context, id string) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&models.Room{}).Error
}

func (r *roomRepository) ListByGuestHouse(ctx context.Context, guestHouseID string) ([]models.Room, error) {
	var rooms []models.Room
	err := conn(ctx, r.db).
		Where("guest_house_id = ?", guestHouseID).
		Order("created_at ASC, id ASC").
		Find(&rooms).Error
	return rooms, err
}
