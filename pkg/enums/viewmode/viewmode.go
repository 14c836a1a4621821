package viewmode

import (
	"fmt"
	"strings"
)

// Mode is how a monitor lays out its station orders.
type Mode struct {
	Name string
}

func (m Mode) Code() string {
	return m.Name
}

func (m Mode) Label() string {
	parts := strings.Split(m.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

type Enum struct {
	Classic         Mode
	Mixed           Mode
	RowsInteractive Mode
}

var Modes = Enum{
	Classic:         Mode{Name: "classic"},
	Mixed:           Mode{Name: "mixed"},
	RowsInteractive: Mode{Name: "rows_interactive"},
}

var All = []Mode{
	Modes.Classic,
	Modes.Mixed,
	Modes.RowsInteractive,
}

// ByName returns the mode for a given name, or nil if not found
func ByName(name string) *Mode {
	for _, m := range All {
		if m.Name == name {
			return &m
		}
	}
	return nil
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.Name), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	found := ByName(string(text))
	if found == nil {
		return fmt.Errorf("unknown view mode %q", string(text))
	}
	*m = *found
	return nil
}
