package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Shared building blocks
// ============================================================

// Audited carries creation / update timestamps
type Audited struct {
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Touch stamps UpdatedAt
func (a *Audited) Touch(now time.Time) {
	a.UpdatedAt = now
}

// SoftDeletable marks rows that can be retired without losing history
type SoftDeletable struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsDeleted returns true once the row has been retired
func (s *SoftDeletable) IsDeleted() bool {
	return s.DeletedAt.Valid
}

// NewID returns a time-ordered UUIDv7 string
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ============================================================
// Users & catalog
// ============================================================

// User represents users table.
// CurrentPoints is a cached projection of the point ledger.
type User struct {
	ID            string `gorm:"type:char(36);primaryKey" json:"id"`
	Nickname      string `gorm:"size:50;not null" json:"nickname"`
	CurrentPoints int64  `gorm:"not null;default:0" json:"current_points"`
	Audited
	SoftDeletable
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// City represents cities table
type City struct {
	ID                string `gorm:"type:char(36);primaryKey" json:"id"`
	Name              string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Theme             string `gorm:"size:100" json:"theme"`
	Description       string `gorm:"type:text" json:"description"`
	BaseCostPoints    int64  `gorm:"not null" json:"base_cost_points"`
	BaseDurationHours int    `gorm:"not null" json:"base_duration_hours"`
	DisplayOrder      int    `gorm:"default:0" json:"display_order"`
	IsActive          bool   `gorm:"not null" json:"is_active"`
	Audited
}

func (City) TableName() string {
	return "cities"
}

func (c *City) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// Vehicle represents vehicles table (the "airship" a traveler rides)
type Vehicle struct {
	ID             string `gorm:"type:char(36);primaryKey" json:"id"`
	Name           string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description    string `gorm:"type:text" json:"description"`
	CostFactor     int    `gorm:"not null;default:1" json:"cost_factor"`
	DurationFactor int    `gorm:"not null;default:1" json:"duration_factor"`
	DisplayOrder   int    `gorm:"default:0" json:"display_order"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
	Audited
}

func (Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = NewID()
	}
	return nil
}

// AutoMigrate creates or updates every table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&City{},
		&Vehicle{},
		&GuestHouse{},
		&Room{},
		&Ticket{},
		&RoomStay{},
		&PointTransaction{},
		&Diary{},
		&TaskFailureLog{},
	)
}
