package kds

import (
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/appetiteclub/kds/pkg/enums/viewmode"
)

const (
	// NewestRight keeps oldest orders first (FIFO), newest at the end.
	NewestRight = "right"
	// NewestLeft puts the newest orders first.
	NewestLeft = "left"

	defaultRowsCount = 2
)

// Monitor is the read-only display configuration of one KDS screen.
type Monitor struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ViewMode      viewmode.Mode     `json:"view_mode"`
	RowsCount     int               `json:"rows_count"`
	NewestSide    string            `json:"newest_side"`
	ShowStartBtn  bool              `json:"show_start_btn"`
	ShowFinishBtn bool              `json:"show_finish_btn"`
	ShowServeBtn  bool              `json:"show_serve_btn"`
	StationFilter []station.Station `json:"station_filter"`
	// Filtered is set when the stored filter named stations. A filtered
	// monitor with an empty StationFilter shows nothing.
	Filtered bool `json:"filtered"`
}

// MonitorRecord is the stored shape of a monitor.
type MonitorRecord struct {
	ID            string   `bson:"_id" json:"id"`
	Name          string   `bson:"name" json:"name"`
	ViewMode      string   `bson:"view_mode" json:"view_mode"`
	RowsCount     int      `bson:"rows_count" json:"rows_count"`
	NewestSide    string   `bson:"newest_side" json:"newest_side"`
	ShowStartBtn  bool     `bson:"show_start_btn" json:"show_start_btn"`
	ShowFinishBtn bool     `bson:"show_finish_btn" json:"show_finish_btn"`
	ShowServeBtn  bool     `bson:"show_serve_btn" json:"show_serve_btn"`
	StationFilter []string `bson:"station_filter" json:"station_filter"`
}

// MonitorFromRecord normalizes a stored monitor. Unknown view modes fall back
// to classic and unknown stations in the filter are ignored. A filter naming
// only unknown stations matches no line.
func MonitorFromRecord(rec MonitorRecord) Monitor {
	mode := viewmode.Modes.Classic
	if m := viewmode.ByName(rec.ViewMode); m != nil {
		mode = *m
	}

	rows := rec.RowsCount
	if rows < 1 {
		rows = defaultRowsCount
	}

	side := NewestRight
	if rec.NewestSide == NewestLeft {
		side = NewestLeft
	}

	filter := make([]station.Station, 0, len(rec.StationFilter))
	for _, name := range rec.StationFilter {
		if s := station.ByName(name); s != nil {
			filter = append(filter, *s)
		}
	}

	return Monitor{
		ID:            rec.ID,
		Name:          rec.Name,
		ViewMode:      mode,
		RowsCount:     rows,
		NewestSide:    side,
		ShowStartBtn:  rec.ShowStartBtn,
		ShowFinishBtn: rec.ShowFinishBtn,
		ShowServeBtn:  rec.ShowServeBtn,
		StationFilter: filter,
		Filtered:      len(rec.StationFilter) > 0,
	}
}

// Shows reports whether lines of st belong on this monitor. A monitor
// without a configured filter shows every station.
func (m Monitor) Shows(st station.Station) bool {
	if len(m.StationFilter) == 0 {
		return !m.Filtered
	}
	for _, s := range m.StationFilter {
		if s == st {
			return true
		}
	}
	return false
}

// Allows reports whether the monitor exposes the button for action.
func (m Monitor) Allows(action Action) bool {
	switch action {
	case ActionStart:
		return m.ShowStartBtn
	case ActionFinish:
		return m.ShowFinishBtn
	case ActionServe:
		return m.ShowServeBtn
	default:
		return false
	}
}
