package kds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/event"
)

// Outcome is the result of a single-line command.
type Outcome struct {
	Line     PrepLine          `json:"line"`
	Previous prepstatus.Status `json:"previous_status"`
	Changed  bool              `json:"changed"`
}

// LineFailure reports why one line of a bulk command could not be applied.
type LineFailure struct {
	LineID LineID `json:"line_id"`
	Error  string `json:"error"`
	err    error
}

func (f LineFailure) Unwrap() error { return f.err }

// BulkResult reports a course-wide command line by line.
type BulkResult struct {
	TicketID TicketID      `json:"ticket_id"`
	Course   int           `json:"course"`
	Action   Action        `json:"action"`
	Applied  []LineID      `json:"applied"`
	Skipped  []LineID      `json:"skipped"`
	Failed   []LineFailure `json:"failed"`
}

// Commander executes state-machine commands against the store. It holds no
// line state of its own; every command reads the current record first.
type Commander struct {
	lines     LineRepository
	courses   CourseRepository
	publisher events.Publisher
	logger    apt.Logger
	now       func() time.Time
}

func NewCommander(lines LineRepository, courses CourseRepository, publisher events.Publisher, logger apt.Logger) *Commander {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Commander{
		lines:     lines,
		courses:   courses,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *Commander) Start(ctx context.Context, id LineID) (Outcome, error) {
	return c.Transition(ctx, ActionStart, id)
}

func (c *Commander) Finish(ctx context.Context, id LineID) (Outcome, error) {
	return c.Transition(ctx, ActionFinish, id)
}

func (c *Commander) Serve(ctx context.Context, id LineID) (Outcome, error) {
	return c.Transition(ctx, ActionServe, id)
}

// Transition applies action to the line with the given id.
func (c *Commander) Transition(ctx context.Context, action Action, id LineID) (Outcome, error) {
	line, err := c.load(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	return c.apply(ctx, action, line)
}

func (c *Commander) load(ctx context.Context, id LineID) (PrepLine, error) {
	raw, err := c.lines.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return PrepLine{}, err
		}
		return PrepLine{}, fmt.Errorf("cannot load line %s: %w", id, err)
	}
	if raw == nil {
		return PrepLine{}, fmt.Errorf("line %s: %w", id, ErrLineNotFound)
	}
	return Classify(*raw)
}

func (c *Commander) apply(ctx context.Context, action Action, line PrepLine) (Outcome, error) {
	tr, err := Apply(action, line, c.now())
	if err != nil {
		return Outcome{Line: line, Previous: line.Status}, err
	}
	if !tr.Changed {
		return Outcome{Line: tr.Line, Previous: tr.Previous}, nil
	}

	sources := action.Sources()
	from := make([]string, 0, len(sources))
	for _, s := range sources {
		from = append(from, s.Code())
	}

	update := StatusUpdate{
		LineID:    line.ID,
		From:      from,
		To:        tr.Line.Status.Code(),
		StartedAt: tr.Line.StartedAt,
		ReadyAt:   tr.Line.ReadyAt,
		ServedAt:  tr.Line.ServedAt,
	}

	applied, err := c.lines.UpdateStatus(ctx, update)
	if err != nil {
		return Outcome{Line: line, Previous: line.Status}, fmt.Errorf("cannot write line %s: %w", line.ID, err)
	}

	if !applied {
		// Another screen moved the line first; report its current state.
		current, err := c.load(ctx, line.ID)
		if err != nil {
			return Outcome{Line: line, Previous: line.Status}, err
		}
		if current.Status.AtLeast(action.Target()) {
			return Outcome{Line: current, Previous: current.Status}, nil
		}
		return Outcome{Line: current, Previous: current.Status},
			fmt.Errorf("line %s is %s, cannot %s: %w", line.ID, current.Status.Code(), action, ErrPrecondition)
	}

	c.publishStatusChange(ctx, tr)
	return Outcome{Line: tr.Line, Previous: tr.Previous, Changed: true}, nil
}

// March sets the fire flag of a course.
func (c *Commander) March(ctx context.Context, ticketID TicketID, course int) error {
	return c.setMarched(ctx, ticketID, course, true)
}

// Unmarch clears the fire flag of a course. Line statuses are not touched.
func (c *Commander) Unmarch(ctx context.Context, ticketID TicketID, course int) error {
	return c.setMarched(ctx, ticketID, course, false)
}

func (c *Commander) setMarched(ctx context.Context, ticketID TicketID, course int, marched bool) error {
	raws, err := c.lines.ListByCourse(ctx, ticketID, course)
	if err != nil {
		return fmt.Errorf("cannot list course lines: %w", err)
	}
	if len(raws) == 0 {
		return fmt.Errorf("ticket %s course %d: %w", ticketID, course, ErrCourseNotFound)
	}

	if err := c.courses.SetMarched(ctx, ticketID, course, marched); err != nil {
		return fmt.Errorf("cannot update course flag: %w", err)
	}

	eventType := event.EventCourseMarched
	if !marched {
		eventType = event.EventCourseUnmarched
	}
	c.publish(ctx, event.CourseMarchEvent{
		EventType:  eventType,
		OccurredAt: c.now(),
		TicketID:   ticketID.String(),
		Course:     course,
		IsMarched:  marched,
	})
	return nil
}

func (c *Commander) StartAllInCourse(ctx context.Context, ticketID TicketID, course int) (BulkResult, error) {
	return c.ApplyToCourse(ctx, ActionStart, ticketID, course)
}

func (c *Commander) FinishAllInCourse(ctx context.Context, ticketID TicketID, course int) (BulkResult, error) {
	return c.ApplyToCourse(ctx, ActionFinish, ticketID, course)
}

func (c *Commander) ServeAllInCourse(ctx context.Context, ticketID TicketID, course int) (BulkResult, error) {
	return c.ApplyToCourse(ctx, ActionServe, ticketID, course)
}

// ApplyToCourse applies action to every line of a course. Lines the action does
// not apply to are skipped; write failures are reported per line.
func (c *Commander) ApplyToCourse(ctx context.Context, action Action, ticketID TicketID, course int) (BulkResult, error) {
	result := BulkResult{TicketID: ticketID, Course: course, Action: action}

	raws, err := c.lines.ListByCourse(ctx, ticketID, course)
	if err != nil {
		return result, fmt.Errorf("cannot list course lines: %w", err)
	}
	if len(raws) == 0 {
		return result, fmt.Errorf("ticket %s course %d: %w", ticketID, course, ErrCourseNotFound)
	}

	for _, raw := range raws {
		line, err := Classify(raw)
		if err != nil {
			c.logger.Info("skipping malformed line in bulk command", "line_id", raw.ID, "error", err)
			continue
		}

		out, err := c.apply(ctx, action, line)
		switch {
		case errors.Is(err, ErrPrecondition):
			result.Skipped = append(result.Skipped, line.ID)
		case err != nil:
			result.Failed = append(result.Failed, LineFailure{LineID: line.ID, Error: err.Error(), err: err})
		case out.Changed:
			result.Applied = append(result.Applied, line.ID)
		default:
			result.Skipped = append(result.Skipped, line.ID)
		}
	}

	if len(result.Failed) > 0 {
		c.logger.Error("bulk command partially failed",
			"ticket_id", ticketID, "course", course, "action", action, "failed", len(result.Failed))
	}
	return result, nil
}

func (c *Commander) publishStatusChange(ctx context.Context, tr Transition) {
	c.publish(ctx, event.LineStatusChangedEvent{
		EventType:      event.EventLineStatusChanged,
		OccurredAt:     c.now(),
		TicketID:       tr.Line.TicketID.String(),
		LineID:         tr.Line.ID.String(),
		Station:        tr.Line.Station.Code(),
		NewStatus:      tr.Line.Status.Code(),
		PreviousStatus: tr.Previous.Code(),
		StartedAt:      tr.Line.StartedAt,
		ReadyAt:        tr.Line.ReadyAt,
		ServedAt:       tr.Line.ServedAt,
	})
}

func (c *Commander) publish(ctx context.Context, payload interface{}) {
	if c.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Errorf("cannot marshal event: %v", err)
		return
	}
	if err := c.publisher.Publish(ctx, event.TicketLinesTopic, data); err != nil {
		c.logger.Errorf("Failed to publish kds event: %v", err)
	}
}
