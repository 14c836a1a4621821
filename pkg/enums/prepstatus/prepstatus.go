package prepstatus

import (
	"fmt"
	"strings"
)

// Status is the preparation state of a single ticket line.
// Statuses only move forward: pending, preparing, ready, served.
type Status struct {
	Name string
	rank int
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Rank orders statuses along the workflow. Higher is later.
func (s Status) Rank() int {
	return s.rank
}

// Before reports whether s comes earlier in the workflow than other.
func (s Status) Before(other Status) bool {
	return s.rank < other.rank
}

// AtLeast reports whether s is other or any later status.
func (s Status) AtLeast(other Status) bool {
	return s.rank >= other.rank
}

func (s Status) IsTerminal() bool {
	return s.Name == Statuses.Served.Name
}

type Enum struct {
	Pending   Status
	Preparing Status
	Ready     Status
	Served    Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending", rank: 0},
	Preparing: Status{Name: "preparing", rank: 1},
	Ready:     Status{Name: "ready", rank: 2},
	Served:    Status{Name: "served", rank: 3},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Served,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// CodesBefore returns the codes of every status earlier than s.
func CodesBefore(s Status) []string {
	codes := make([]string, 0, len(All))
	for _, st := range All {
		if st.rank < s.rank {
			codes = append(codes, st.Name)
		}
	}
	return codes
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	found := ByName(string(text))
	if found == nil {
		return fmt.Errorf("unknown prep status %q", string(text))
	}
	*s = *found
	return nil
}
