package kds

import "errors"

var (
	// ErrMalformedLine marks a raw line record that cannot be classified.
	ErrMalformedLine = errors.New("malformed ticket line")
	// ErrLineNotFound is returned when a command targets an unknown line.
	ErrLineNotFound = errors.New("line not found")
	// ErrPrecondition is returned when a transition is illegal for the current state.
	ErrPrecondition = errors.New("precondition violated")
	// ErrCourseNotFound is returned when a ticket has no line in the requested course.
	ErrCourseNotFound = errors.New("course not found")
	// ErrActionDisabled is returned when a monitor hides the requested action.
	ErrActionDisabled  = errors.New("action disabled on monitor")
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrTicketNotFound  = errors.New("ticket not found")
)
