package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/models"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

const maxFailureListing = 100

// DashboardService aggregates operational state for administrators
type DashboardService struct {
	db       *gorm.DB
	failures repositories.TaskFailureLogStore
	ledger   *PointLedgerService
	clock    clock.Clock
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, failures repositories.TaskFailureLogStore, ledger *PointLedgerService, clk clock.Clock) *DashboardService {
	return &DashboardService{
		db:       db,
		failures: failures,
		ledger:   ledger,
		clock:    clk,
	}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Users & points
	TotalUsers          int64 `json:"total_users"`
	PointsInCirculation int64 `json:"points_in_circulation"`

	// Tickets
	TicketsByStatus map[domain.TicketStatus]int64 `json:"tickets_by_status"`
	OverdueBoarding int64                         `json:"overdue_boarding"`

	// Stays
	ActiveStays  int64 `json:"active_stays"`
	OverdueStays int64 `json:"overdue_stays"`

	// Occupancy per guest house
	GuestHouses []GuestHouseOccupancy `json:"guest_houses"`

	// Background failures
	RecentFailures []TaskFailureSummary `json:"recent_failures"`
}

// GuestHouseOccupancy summarizes the open rooms of one guest house
type GuestHouseOccupancy struct {
	GuestHouseID string `json:"guest_house_id"`
	Name         string `json:"name"`
	OpenRooms    int64  `json:"open_rooms"`
	Occupants    int64  `json:"occupants"`
	Capacity     int64  `json:"capacity"`
}

// TaskFailureSummary is a dead-lettered task without its traceback
type TaskFailureSummary struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	TaskName     string    `json:"task_name"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	now := s.clock.Now()
	db := s.db.WithContext(ctx)
	data := &AdminDashboardData{
		GeneratedAt:     now,
		TicketsByStatus: map[domain.TicketStatus]int64{},
	}

	// Users & points
	if err := db.Model(&models.User{}).Count(&data.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).
		Select("COALESCE(SUM(current_points), 0)").
		Scan(&data.PointsInCirculation).Error; err != nil {
		return nil, err
	}

	// Ticket counts by status
	var ticketRows []struct {
		Status domain.TicketStatus
		Total  int64
	}
	if err := db.Model(&models.Ticket{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&ticketRows).Error; err != nil {
		return nil, err
	}
	for _, r := range ticketRows {
		data.TicketsByStatus[r.Status] = r.Total
	}

	if err := db.Model(&models.Ticket{}).
		Where("status = ? AND arrival_datetime < ?", domain.TicketBoarding, now).
		Count(&data.OverdueBoarding).Error; err != nil {
		return nil, err
	}

	// Stays
	if err := db.Model(&models.RoomStay{}).
		Where("status = ?", domain.RoomStayCheckedIn).
		Count(&data.ActiveStays).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.RoomStay{}).
		Where("status = ? AND scheduled_check_out_at <= ?", domain.RoomStayCheckedIn, now).
		Count(&data.OverdueStays).Error; err != nil {
		return nil, err
	}

	// Occupancy (retired rooms are soft-deleted and excluded)
	if err := db.Table("guest_houses").
		Select(`guest_houses.id AS guest_house_id, guest_houses.name,
			COUNT(rooms.id) AS open_rooms,
			COALESCE(SUM(rooms.current_capacity), 0) AS occupants,
			COALESCE(SUM(rooms.max_capacity), 0) AS capacity`).
		Joins("LEFT JOIN rooms ON rooms.guest_house_id = guest_houses.id AND rooms.deleted_at IS NULL").
		Where("guest_houses.is_active = ?", true).
		Group("guest_houses.id, guest_houses.name").
		Order("guest_houses.name").
		Scan(&data.GuestHouses).Error; err != nil {
		return nil, err
	}

	failures, err := s.RecentFailures(ctx, 10)
	if err != nil {
		return nil, err
	}
	data.RecentFailures = failures

	return data, nil
}

// RecentFailures lists the newest dead-lettered tasks
func (s *DashboardService) RecentFailures(ctx context.Context, limit int) ([]TaskFailureSummary, error) {
	if limit < 1 || limit > maxFailureListing {
		limit = maxFailureListing
	}

	logs, err := s.failures.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]TaskFailureSummary, 0, len(logs))
	for _, l := range logs {
		out = append(out, TaskFailureSummary{
			ID:           l.ID,
			TaskID:       l.TaskID,
			TaskName:     l.TaskName,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		})
	}
	return out, nil
}

// ReconcileUser compares a user's cached balance with the ledger
func (s *DashboardService) ReconcileUser(ctx context.Context, userID string) (*Reconciliation, error) {
	return s.ledger.Reconcile(ctx, userID)
}
