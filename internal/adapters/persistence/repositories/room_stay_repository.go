package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomStayRepository struct {
	db *gorm.DB
}

// NewRoomStayRepository creates a new room stay repository
func NewRoomStayRepository(db *gorm.DB) RoomStayStore {
	return &roomStayRepository{db: db}
}

func (r *roomStayRepository) Create(ctx context.Context, stay *models.RoomStay) error {
	return conn(ctx, r.db).Create(stay).Error
}

func (r *roomStayRepository) GetByID(ctx context.Context, id string) (*models.RoomStay, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *roomStayRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.RoomStay, error) {
	return r.first(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *roomStayRepository) GetByTicketID(ctx context.Context, ticketID string) (*models.RoomStay, error) {
	return r.first(conn(ctx, r.db).Where("ticket_id = ?", ticketID))
}

func (r *roomStayRepository) FindActiveByUser(ctx context.Context, userID string) (*models.RoomStay, error) {
	return r.first(conn(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, domain.RoomStayCheckedIn).
		Order("check_in_at DESC"))
}

func (r *roomStayRepository) first(q *gorm.DB) (*models.RoomStay, error) {
	var stay models.RoomStay
	if err := q.First(&stay).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stay, nil
}

func (r *roomStayRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]models.RoomStay, error) {
	var stays []models.RoomStay
	err := conn(ctx, r.db).
		Where("room_id = ? AND status = ?", roomID, domain.RoomStayCheckedIn).
		Order("check_in_at ASC").
		Find(&stays).Error
	return stays, err
}

// ListDue returns CHECKED_IN stays whose scheduled check-out is at or before now
func (r *roomStayRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.RoomStay, error) {
	var stays []models.RoomStay
	err := conn(ctx, r.db).
		Where("status = ? AND scheduled_check_out_at <= ?", domain.RoomStayCheckedIn, now).
		Order("scheduled_check_out_at ASC").
		Limit(limit).
		Find(&stays).Error
	return stays, err
}

// Update persists the mutable lifecycle fields
func (r *roomStayRepository) Update(ctx context.Context, stay *models.RoomStay) error {
	return conn(ctx, r.db).Model(stay).Select(
		"status",
		"scheduled_check_out_at",
		"actual_check_out_at",
		"extension_count",
	).Updates(stay).Error
}
