package services

import (
	"context"
	"time"
)

// TaskScheduler is implemented by the background worker.
// Scheduling is at-least-once: the completion task may run more than once.
type TaskScheduler interface {
	ScheduleTicketCompletion(ctx context.Context, ticketID string, eta time.Time) error
}

// BookingRules holds the business constants services need
type BookingRules struct {
	RoomMaxCapacity   int
	StayDuration      time.Duration
	ExtensionCost     int64
	SignupPoints      int64
	DiaryRewardPoints int64
	RetireEmptyRooms  bool
}

// DefaultBookingRules returns the production defaults
func DefaultBookingRules() BookingRules {
	return BookingRules{
		RoomMaxCapacity:   6,
		StayDuration:      24 * time.Hour,
		ExtensionCost:     300,
		SignupPoints:      1000,
		DiaryRewardPoints: 50,
		RetireEmptyRooms:  true,
	}
}
