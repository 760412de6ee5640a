package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/clock"
)

const recoveryBatchSize = 100

// Sweeper periodically checks out expired stays and re-enqueues completion
// for BOARDING tickets whose scheduled task was lost
type Sweeper struct {
	cron      *cron.Cron
	schedule  string
	stays     *services.RoomStayService
	tickets   *services.TicketService
	scheduler *Scheduler
	clock     clock.Clock
	grace     time.Duration
}

// NewSweeper creates a new sweeper. schedule is a cron spec such as "@every 1m".
func NewSweeper(
	schedule string,
	grace time.Duration,
	stays *services.RoomStayService,
	tickets *services.TicketService,
	scheduler *Scheduler,
	clk clock.Clock,
) *Sweeper {
	return &Sweeper{
		cron:      cron.New(),
		schedule:  schedule,
		stays:     stays,
		tickets:   tickets,
		scheduler: scheduler,
		clock:     clk,
		grace:     grace,
	}
}

// Start registers the sweep and starts the cron runner
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.Printf("🧹 Sweeper started (%s)", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Sweeper stopped")
}

// SweepReport summarizes one sweep
type SweepReport struct {
	CheckedOut int
	Recovered  int
}

// Sweep runs both passes once
func (s *Sweeper) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	now := s.clock.Now()

	n, err := s.stays.CheckOutExpired(ctx, now)
	if err != nil {
		log.Printf("❌ Expired stay sweep error: %v", err)
	}
	report.CheckedOut = n

	report.Recovered = s.recoverOverdue(ctx, now)
	return report
}

func (s *Sweeper) recoverOverdue(ctx context.Context, now time.Time) int {
	overdue, err := s.tickets.ListOverdueBoarding(ctx, now.Add(-s.grace), recoveryBatchSize)
	if err != nil {
		log.Printf("❌ Overdue ticket query error: %v", err)
		return 0
	}
	if len(overdue) == 0 {
		return 0
	}

	queued := make(map[string]bool)
	if pending, err := s.scheduler.queue.Pending(); err == nil {
		for _, t := range pending {
			if t.Name == TaskCompleteTicket {
				queued[t.Arg(0)] = true
			}
		}
	}

	recovered := 0
	for i := range overdue {
		if queued[overdue[i].ID] {
			continue
		}
		if err := s.scheduler.ScheduleTicketCompletion(ctx, overdue[i].ID, now); err != nil {
			log.Printf("❌ Failed to re-enqueue completion of ticket %s: %v", overdue[i].TicketNumber, err)
			continue
		}
		recovered++
	}

	if recovered > 0 {
		log.Printf("♻️ Re-enqueued completion for %d overdue tickets", recovered)
	}
	return recovered
}
