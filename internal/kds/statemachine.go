package kds

import (
	"fmt"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
)

// Action is a user command on a single line.
type Action string

const (
	ActionStart  Action = "start"
	ActionFinish Action = "finish"
	ActionServe  Action = "serve"
)

// ParseAction returns the action named s.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionStart, ActionFinish, ActionServe:
		return Action(s), true
	default:
		return "", false
	}
}

// Target is the status a line reaches after the action.
func (a Action) Target() prepstatus.Status {
	switch a {
	case ActionStart:
		return prepstatus.Statuses.Preparing
	case ActionFinish:
		return prepstatus.Statuses.Ready
	case ActionServe:
		return prepstatus.Statuses.Served
	default:
		return prepstatus.Status{}
	}
}

// Sources lists the statuses from which the action moves a line.
func (a Action) Sources() []prepstatus.Status {
	switch a {
	case ActionStart:
		return []prepstatus.Status{prepstatus.Statuses.Pending}
	case ActionFinish:
		return []prepstatus.Status{prepstatus.Statuses.Pending, prepstatus.Statuses.Preparing}
	case ActionServe:
		return []prepstatus.Status{prepstatus.Statuses.Ready}
	default:
		return nil
	}
}

// Transition is the result of applying an action to a line.
type Transition struct {
	Line     PrepLine
	Previous prepstatus.Status
	Changed  bool
}

// Start moves a pending line to preparing. Any later status is left untouched.
func Start(line PrepLine, now time.Time) Transition {
	tr := Transition{Line: line, Previous: line.Status}
	if line.Status != prepstatus.Statuses.Pending {
		return tr
	}
	tr.Line.Status = prepstatus.Statuses.Preparing
	if tr.Line.StartedAt == nil {
		tr.Line.StartedAt = &now
	}
	tr.Changed = true
	return tr
}

// Finish marks a pending or preparing line ready. Ready and served lines are left untouched.
func Finish(line PrepLine, now time.Time) Transition {
	tr := Transition{Line: line, Previous: line.Status}
	if line.Status.AtLeast(prepstatus.Statuses.Ready) {
		return tr
	}
	tr.Line.Status = prepstatus.Statuses.Ready
	tr.Line.ReadyAt = &now
	tr.Changed = true
	return tr
}

// Serve moves a ready line to served. Serving a line that is not ready yet is rejected.
func Serve(line PrepLine, now time.Time) (Transition, error) {
	tr := Transition{Line: line, Previous: line.Status}
	switch line.Status {
	case prepstatus.Statuses.Served:
		return tr, nil
	case prepstatus.Statuses.Ready:
		tr.Line.Status = prepstatus.Statuses.Served
		tr.Line.ServedAt = &now
		tr.Changed = true
		return tr, nil
	default:
		return tr, fmt.Errorf("cannot serve line %s in status %s: %w", line.ID, line.Status.Code(), ErrPrecondition)
	}
}

// Apply dispatches action to its transition.
func Apply(action Action, line PrepLine, now time.Time) (Transition, error) {
	switch action {
	case ActionStart:
		return Start(line, now), nil
	case ActionFinish:
		return Finish(line, now), nil
	case ActionServe:
		return Serve(line, now)
	default:
		return Transition{Line: line, Previous: line.Status}, fmt.Errorf("unknown action %q", action)
	}
}
