package station

import (
	"fmt"
	"strings"
)

type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Order is the position of the station in All, used for stable sorting.
func (s Station) Order() int {
	for i, st := range All {
		if st.Name == s.Name {
			return i
		}
	}
	return len(All)
}

func (s Station) IsZero() bool {
	return s.Name == ""
}

type Enum struct {
	Kitchen Station
	Bar     Station
	Prep    Station
}

var Stations = Enum{
	Kitchen: Station{Name: "kitchen"},
	Bar:     Station{Name: "bar"},
	Prep:    Station{Name: "prep"},
}

var All = []Station{
	Stations.Kitchen,
	Stations.Bar,
	Stations.Prep,
}

// ByName returns the station for a given name, or nil if not found
func ByName(name string) *Station {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// ByNameOrDefault resolves a destination, falling back to the kitchen.
func ByNameOrDefault(name string) Station {
	if s := ByName(name); s != nil {
		return *s
	}
	return Stations.Kitchen
}

func (s Station) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Station) UnmarshalText(text []byte) error {
	found := ByName(string(text))
	if found == nil {
		return fmt.Errorf("unknown station %q", string(text))
	}
	*s = *found
	return nil
}
