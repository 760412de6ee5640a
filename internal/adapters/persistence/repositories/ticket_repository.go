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

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) TicketStore {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	return conn(ctx, r.db).Create(ticket).Error
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	return r.first(conn(ctx, r.db), id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Ticket, error) {
	return r.first(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ticketRepository) first(q *gorm.DB, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := q.Where("id = ?", id).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatus persists the ticket's status only; snapshots and cost are immutable
func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *models.Ticket) error {
	return conn(ctx, r.db).Model(ticket).Update("status", ticket.Status).Error
}

// ListByUser lists a user's tickets, newest first
func (r *ticketRepository) ListByUser(ctx context.Context, userID string, filter TicketFilter, offset, limit int) ([]models.Ticket, int64, error) {
	var tickets []models.Ticket
	var total int64

	q := conn(ctx, r.db).Model(&models.Ticket{}).Where("user_id = ?", userID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	q = q.Session(&gorm.Session{})

	// Count total
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&tickets).Error; err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

// FindBoardingByUser returns the user's latest BOARDING ticket
func (r *ticketRepository) FindBoardingByUser(ctx context.Context, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := conn(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, domain.TicketBoarding).
		Order("departure_datetime DESC").
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// FindAwaitingCheckInByUser returns a COMPLETED ticket of the user that has no stay yet
func (r *ticketRepository) FindAwaitingCheckInByUser(ctx context.Context, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := conn(ctx, r.db).
		Where("user_id = ? AND status = ?", userID, domain.TicketCompleted).
		Where("NOT EXISTS (SELECT 1 FROM room_stays WHERE room_stays.ticket_id = tickets.id)").
		Order("arrival_datetime DESC").
		First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticket, nil
}

// ListOverdueBoarding returns BOARDING tickets that should have arrived already
func (r *ticketRepository) ListOverdueBoarding(ctx context.Context, arrivedBefore time.Time, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := conn(ctx, r.db).
		Where("status = ? AND arrival_datetime < ?", domain.TicketBoarding, arrivedBefore).
		Order("arrival_datetime ASC").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}
