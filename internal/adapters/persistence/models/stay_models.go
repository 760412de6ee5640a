package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
)

// ============================================================
// Guest houses, rooms and stays
// ============================================================

// GuestHouse represents guest_houses table. Guest houses are never deleted.
type GuestHouse struct {
	ID          string `gorm:"type:char(36);primaryKey" json:"id"`
	CityID      string `gorm:"type:char(36);not null;index" json:"city_id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	Audited
}

func (GuestHouse) TableName() string {
	return "guest_houses"
}

func (g *GuestHouse) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = NewID()
	}
	return nil
}

// LockKey is the exclusive-lock scope for capacity changes in this guest house
func (g *GuestHouse) LockKey() string {
	return GuestHouseLockKey(g.ID)
}

// GuestHouseLockKey builds the lock scope for a guest house id
func GuestHouseLockKey(guestHouseID string) string {
	return "guest_house:" + guestHouseID
}

// Room represents rooms table
type Room struct {
	ID              string `gorm:"type:char(36);primaryKey" json:"id"`
	GuestHouseID    string `gorm:"type:char(36);not null;index" json:"guest_house_id"`
	MaxCapacity     int    `gorm:"not null" json:"max_capacity"`
	CurrentCapacity int    `gorm:"not null;default:0" json:"current_capacity"`
	Audited
	SoftDeletable
}

func (Room) TableName() string {
	return "rooms"
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

// NewRoom builds an empty room
func NewRoom(guestHouseID string, maxCapacity int) *Room {
	return &Room{
		ID:           NewID(),
		GuestHouseID: guestHouseID,
		MaxCapacity:  maxCapacity,
	}
}

// HasVacancy returns true while another guest fits
func (r *Room) HasVacancy() bool {
	return r.CurrentCapacity < r.MaxCapacity
}

// IsEmpty returns true when nobody is staying
func (r *Room) IsEmpty() bool {
	return r.CurrentCapacity == 0
}

// Occupy adds one guest in memory
func (r *Room) Occupy() error {
	if !r.HasVacancy() {
		return domain.ErrRoomCapacityExceeded
	}
	r.CurrentCapacity++
	return nil
}

// Vacate removes one guest in memory
func (r *Room) Vacate() error {
	if r.CurrentCapacity <= 0 {
		return domain.ErrRoomAlreadyEmpty
	}
	r.CurrentCapacity--
	return nil
}

// RoomStay represents room_stays table
type RoomStay struct {
	ID                  string                `gorm:"type:char(36);primaryKey" json:"id"`
	UserID              string                `gorm:"type:char(36);not null;index:idx_room_stays_user_status,priority:1" json:"user_id"`
	CityID              string                `gorm:"type:char(36);not null" json:"city_id"`
	GuestHouseID        string                `gorm:"type:char(36);not null;index" json:"guest_house_id"`
	RoomID              string                `gorm:"type:char(36);not null;index:idx_room_stays_room_status,priority:1" json:"room_id"`
	TicketID            string                `gorm:"type:char(36);not null;uniqueIndex" json:"ticket_id"`
	Status              domain.RoomStayStatus `gorm:"size:15;not null;index:idx_room_stays_user_status,priority:2;index:idx_room_stays_room_status,priority:2;index:idx_room_stays_status_checkout,priority:1" json:"status"`
	CheckInAt           time.Time             `gorm:"not null" json:"check_in_at"`
	ScheduledCheckOutAt time.Time             `gorm:"not null;index:idx_room_stays_status_checkout,priority:2" json:"scheduled_check_out_at"`
	ActualCheckOutAt    *time.Time            `json:"actual_check_out_at"`
	ExtensionCount      int                   `gorm:"not null;default:0" json:"extension_count"`
	Audited
}

func (RoomStay) TableName() string {
	return "room_stays"
}

func (s *RoomStay) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}

// NewRoomStay builds a CHECKED_IN stay for a completed ticket
func NewRoomStay(ticket *Ticket, room *Room, checkInAt time.Time, stay time.Duration) (*RoomStay, error) {
	if ticket.Status != domain.TicketCompleted {
		return nil, domain.ErrInvalidTicketState
	}
	return &RoomStay{
		ID:                  NewID(),
		UserID:              ticket.UserID,
		CityID:              ticket.City.CityID,
		GuestHouseID:        room.GuestHouseID,
		RoomID:              room.ID,
		TicketID:            ticket.ID,
		Status:              domain.RoomStayCheckedIn,
		CheckInAt:           checkInAt,
		ScheduledCheckOutAt: checkInAt.Add(stay),
	}, nil
}

// IsActive returns true while the guest is in the room
func (s *RoomStay) IsActive() bool {
	return s.Status == domain.RoomStayCheckedIn
}

// IsOwnedBy checks ownership
func (s *RoomStay) IsOwnedBy(userID string) bool {
	return s.UserID == userID
}

// Extend pushes the scheduled check-out back; the status stays CHECKED_IN
func (s *RoomStay) Extend(by time.Duration) error {
	if !s.IsActive() {
		return domain.ErrInvalidRoomStayState
	}
	s.ScheduledCheckOutAt = s.ScheduledCheckOutAt.Add(by)
	s.ExtensionCount++
	return nil
}

// CheckOut closes the stay
func (s *RoomStay) CheckOut(now time.Time) error {
	if !s.IsActive() {
		return domain.ErrInvalidRoomStayState
	}
	s.Status = domain.RoomStayCheckedOut
	s.ActualCheckOutAt = &now
	return nil
}

// IsDue returns true once the scheduled check-out has passed
func (s *RoomStay) IsDue(now time.Time) bool {
	return !s.ScheduledCheckOutAt.After(now)
}

// Diary represents diaries table. One diary per stay.
type Diary struct {
	ID         string `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string `gorm:"type:char(36);not null;index" json:"user_id"`
	RoomStayID string `gorm:"type:char(36);not null;uniqueIndex" json:"room_stay_id"`
	CityID     string `gorm:"type:char(36);not null" json:"city_id"`
	Title      string `gorm:"size:100;not null" json:"title"`
	Content    string `gorm:"type:text;not null" json:"content"`
	Mood       string `gorm:"size:20" json:"mood"`
	Audited
	SoftDeletable
}

func (Diary) TableName() string {
	return "diaries"
}

func (d *Diary) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return nil
}
