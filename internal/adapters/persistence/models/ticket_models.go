package models

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// CitySnapshot freezes the city a ticket was bought for
type CitySnapshot struct {
	CityID            string `gorm:"column:city_id;type:char(36);not null;index" json:"city_id"`
	Name              string `gorm:"column:city_name;size:100" json:"name"`
	Theme             string `gorm:"column:city_theme;size:100" json:"theme"`
	BaseCostPoints    int64  `gorm:"column:city_base_cost_points" json:"base_cost_points"`
	BaseDurationHours int    `gorm:"column:city_base_duration_hours" json:"base_duration_hours"`
}

// VehicleSnapshot freezes the vehicle a ticket was bought for
type VehicleSnapshot struct {
	VehicleID      string `gorm:"column:vehicle_id;type:char(36);not null" json:"vehicle_id"`
	Name           string `gorm:"column:vehicle_name;size:50" json:"name"`
	CostFactor     int    `gorm:"column:vehicle_cost_factor" json:"cost_factor"`
	DurationFactor int    `gorm:"column:vehicle_duration_factor" json:"duration_factor"`
}

// SnapshotCity copies the fields a ticket keeps
func SnapshotCity(c *City) CitySnapshot {
	return CitySnapshot{
		CityID:            c.ID,
		Name:              c.Name,
		Theme:             c.Theme,
		BaseCostPoints:    c.BaseCostPoints,
		BaseDurationHours: c.BaseDurationHours,
	}
}

// SnapshotVehicle copies the fields a ticket keeps
func SnapshotVehicle(v *Vehicle) VehicleSnapshot {
	return VehicleSnapshot{
		VehicleID:      v.ID,
		Name:           v.Name,
		CostFactor:     v.CostFactor,
		DurationFactor: v.DurationFactor,
	}
}

// TicketCost returns the points a trip costs
func TicketCost(c CitySnapshot, v VehicleSnapshot) int64 {
	return c.BaseCostPoints * int64(v.CostFactor)
}

// TripDuration returns how long the trip takes
func TripDuration(c CitySnapshot, v VehicleSnapshot) time.Duration {
	return time.Duration(c.BaseDurationHours*v.DurationFactor) * time.Hour
}

// Ticket represents tickets table
type Ticket struct {
	ID                string              `gorm:"type:char(36);primaryKey" json:"id"`
	UserID            string              `gorm:"type:char(36);not null;index:idx_tickets_user_status,priority:1" json:"user_id"`
	TicketNumber      string              `gorm:"size:50;uniqueIndex;not null" json:"ticket_number"`
	City              CitySnapshot        `gorm:"embedded" json:"city"`
	Vehicle           VehicleSnapshot     `gorm:"embedded" json:"vehicle"`
	CostPoints        int64               `gorm:"not null" json:"cost_points"`
	Status            domain.TicketStatus `gorm:"size:15;not null;index:idx_tickets_user_status,priority:2;index:idx_tickets_status_arrival,priority:1" json:"status"`
	DepartureDatetime time.Time           `gorm:"not null" json:"departure_datetime"`
	ArrivalDatetime   time.Time           `gorm:"not null;index:idx_tickets_status_arrival,priority:2" json:"arrival_datetime"`
	Audited
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if t.TicketNumber == "" {
		t.TicketNumber = BuildTicketNumber(t.UserID, t.ID, t.DepartureDatetime)
	}
	return nil
}

// NewTicket builds a PURCHASED ticket departing at now
func NewTicket(userID string, city CitySnapshot, vehicle VehicleSnapshot, now time.Time) *Ticket {
	t := &Ticket{
		ID:                NewID(),
		UserID:            userID,
		City:              city,
		Vehicle:           vehicle,
		CostPoints:        TicketCost(city, vehicle),
		Status:            domain.TicketPurchased,
		DepartureDatetime: now,
		ArrivalDatetime:   now.Add(TripDuration(city, vehicle)),
	}
	t.TicketNumber = BuildTicketNumber(userID, t.ID, now)
	return t
}

// BuildTicketNumber formats B0-{year}-{user time hex}{ticket time hex}
func BuildTicketNumber(userID, ticketID string, departure time.Time) string {
	return fmt.Sprintf("B0-%d-%s%s", departure.Year(), idTimeHex(userID), idTimeHex(ticketID))
}

// idTimeHex returns the 48-bit timestamp part of a v7 id as hex.
// Ids that do not parse fall back to their leading hex characters.
func idTimeHex(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return hex.EncodeToString(u[:6])
	}
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}

// Consume moves PURCHASED -> BOARDING
func (t *Ticket) Consume() error {
	if t.Status != domain.TicketPurchased {
		return domain.ErrInvalidTicketState
	}
	t.Status = domain.TicketBoarding
	return nil
}

// Complete moves BOARDING -> COMPLETED
func (t *Ticket) Complete() error {
	if t.Status != domain.TicketBoarding {
		return domain.ErrInvalidTicketState
	}
	t.Status = domain.TicketCompleted
	return nil
}

// Cancel moves PURCHASED or BOARDING -> CANCELLED
func (t *Ticket) Cancel() error {
	if t.Status != domain.TicketPurchased && t.Status != domain.TicketBoarding {
		return domain.ErrInvalidTicketState
	}
	t.Status = domain.TicketCancelled
	return nil
}

// IsOwnedBy checks ownership
func (t *Ticket) IsOwnedBy(userID string) bool {
	return t.UserID == userID
}
