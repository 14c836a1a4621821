// Package printing routes station tickets to the printer configured for each
// location and hands them to the print service.
package printing

import (
	"fmt"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/pkg/enums/station"
)

// DefaultLocation is consulted when a location has no printer of its own for a station.
const DefaultLocation = "default"

// Directory resolves the printer of a (location, station) pair. Entries are
// read from the printers.<location>.<station> config keys.
type Directory struct {
	lookup func(key string) string
}

func NewDirectory(config *apt.Config) *Directory {
	return &Directory{lookup: func(key string) string {
		if config == nil {
			return ""
		}
		value, _ := config.GetString(key)
		return value
	}}
}

// NewStaticDirectory builds a directory from "location.station" keys.
func NewStaticDirectory(routes map[string]string) *Directory {
	return &Directory{lookup: func(key string) string {
		return routes[strings.TrimPrefix(key, "printers.")]
	}}
}

// Lookup returns the printer id for the pair, falling back to the default location.
func (d *Directory) Lookup(locationID string, st station.Station) (string, bool) {
	if d == nil || d.lookup == nil {
		return "", false
	}
	candidates := []string{locationID, DefaultLocation}
	for _, loc := range candidates {
		if loc == "" {
			continue
		}
		if printer := strings.TrimSpace(d.lookup(routeKey(loc, st))); printer != "" {
			return printer, true
		}
	}
	return "", false
}

func routeKey(locationID string, st station.Station) string {
	return fmt.Sprintf("printers.%s.%s", strings.ToLower(locationID), st.Code())
}
