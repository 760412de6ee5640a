package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
)

// Task names
const (
	TaskCompleteTicket = "complete_ticket"
	TaskCheckIn        = "check_in"
	TaskCheckOut       = "check_out"
)

// Result values reported by task bodies
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// TaskResult is what a task body reports
type TaskResult struct {
	TicketID   string `json:"ticket_id,omitempty"`
	RoomStayID string `json:"room_stay_id,omitempty"`
	Result     string `json:"result"`
	Code       string `json:"code,omitempty"`
}

func failed(r TaskResult, err error) TaskResult {
	r.Result = ResultFailed
	r.Code = domain.CodeOf(err)
	return r
}

// Scheduler is the queue-backed services.TaskScheduler
type Scheduler struct {
	queue *Queue
}

var _ services.TaskScheduler = (*Scheduler)(nil)

// NewScheduler creates a new scheduler
func NewScheduler(queue *Queue) *Scheduler {
	return &Scheduler{queue: queue}
}

// ScheduleTicketCompletion enqueues complete_ticket for the arrival time
func (s *Scheduler) ScheduleTicketCompletion(ctx context.Context, ticketID string, eta time.Time) error {
	_, err := s.queue.Enqueue(ctx, TaskCompleteTicket, []string{ticketID}, eta)
	return err
}

// ScheduleCheckIn enqueues check_in to run as soon as possible
func (s *Scheduler) ScheduleCheckIn(ctx context.Context, ticketID string) error {
	_, err := s.queue.Enqueue(ctx, TaskCheckIn, []string{ticketID}, s.queue.clock.Now())
	return err
}

// ScheduleCheckOut enqueues check_out for the scheduled check-out time
func (s *Scheduler) ScheduleCheckOut(ctx context.Context, roomStayID string, eta time.Time) error {
	_, err := s.queue.Enqueue(ctx, TaskCheckOut, []string{roomStayID}, eta)
	return err
}

// Tasks holds the task bodies and registers them on the queue
type Tasks struct {
	tickets   *services.TicketService
	stays     *services.RoomStayService
	scheduler *Scheduler
}

// NewTasks creates the task bodies and registers them on q
func NewTasks(q *Queue, tickets *services.TicketService, stays *services.RoomStayService) *Tasks {
	t := &Tasks{
		tickets:   tickets,
		stays:     stays,
		scheduler: NewScheduler(q),
	}
	q.Register(TaskCompleteTicket, t.handle(TaskCompleteTicket, t.CompleteTicket))
	q.Register(TaskCheckIn, t.handle(TaskCheckIn, t.CheckIn))
	q.Register(TaskCheckOut, t.handle(TaskCheckOut, t.CheckOut))
	return t
}

// Scheduler returns the scheduler the task bodies chain through
func (t *Tasks) Scheduler() *Scheduler {
	return t.scheduler
}

func (t *Tasks) handle(name string, body func(ctx context.Context, id string) (TaskResult, error)) Handler {
	return func(ctx context.Context, task *Task) error {
		id := task.Arg(0)
		if id == "" {
			return fmt.Errorf("%s: missing argument: %w", name, domain.ErrInvalidInput)
		}
		res, err := body(ctx, id)
		if err != nil {
			log.Printf("⚠️ %s(%s) -> %s %s", name, id, res.Result, res.Code)
			return err
		}
		log.Printf("✅ %s(%s) -> %s", name, id, res.Result)
		return nil
	}
}

// CompleteTicket moves an arrived ticket to COMPLETED and chains check_in
func (t *Tasks) CompleteTicket(ctx context.Context, ticketID string) (TaskResult, error) {
	res := TaskResult{TicketID: ticketID}

	ticket, err := t.tickets.Complete(ctx, ticketID)
	if err != nil {
		return failed(res, err), err
	}
	if ticket.Status != domain.TicketCompleted {
		// cancelled while travelling
		res.Result = ResultSkipped
		return res, nil
	}

	if err := t.scheduler.ScheduleCheckIn(ctx, ticket.ID); err != nil {
		return failed(res, err), err
	}
	res.Result = ResultSuccess
	return res, nil
}

// CheckIn places the traveller in a room and arms the check-out
func (t *Tasks) CheckIn(ctx context.Context, ticketID string) (TaskResult, error) {
	res := TaskResult{TicketID: ticketID}

	stay, err := t.stays.CheckIn(ctx, ticketID)
	if err != nil {
		return failed(res, err), err
	}
	res.RoomStayID = stay.ID

	if stay.IsActive() {
		if err := t.scheduler.ScheduleCheckOut(ctx, stay.ID, stay.ScheduledCheckOutAt); err != nil {
			// the sweeper still checks the stay out
			log.Printf("⚠️ Failed to schedule check-out of stay %s: %v", stay.ID, err)
		}
	}
	res.Result = ResultSuccess
	return res, nil
}

// CheckOut closes a stay once it is due. An extended stay is re-armed for
// its new time; a stay that is already closed is left alone.
func (t *Tasks) CheckOut(ctx context.Context, roomStayID string) (TaskResult, error) {
	res := TaskResult{RoomStayID: roomStayID}

	stay, err := t.stays.GetByID(ctx, roomStayID)
	if err != nil {
		return failed(res, err), err
	}
	res.TicketID = stay.TicketID

	if !stay.IsActive() {
		res.Result = ResultSkipped
		return res, nil
	}

	now := t.scheduler.queue.clock.Now()
	if !stay.IsDue(now) {
		if err := t.scheduler.ScheduleCheckOut(ctx, stay.ID, stay.ScheduledCheckOutAt); err != nil {
			return failed(res, err), err
		}
		res.Result = ResultSkipped
		return res, nil
	}

	if _, err := t.stays.CheckOut(ctx, stay.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidRoomStayState) {
			res.Result = ResultSkipped
			return res, nil
		}
		return failed(res, err), err
	}
	res.Result = ResultSuccess
	return res, nil
}
