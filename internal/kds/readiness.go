package kds

import (
	"sort"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/enums/tablestatus"
)

// TableStatus is the readiness of one physical table across its open tickets.
type TableStatus struct {
	TableID        TableID            `json:"table_id"`
	TableName      string             `json:"table_name"`
	Status         tablestatus.Status `json:"status"`
	PendingCount   int                `json:"pending_count"`
	PreparingCount int                `json:"preparing_count"`
	ReadyCount     int                `json:"ready_count"`
	ServedCount    int                `json:"served_count"`
	TotalItems     int                `json:"total_items"`
	OldestSentAt   *time.Time         `json:"oldest_sent_at,omitempty"`
	ElapsedMinutes int                `json:"elapsed_minutes"`
	HasRushItems   bool               `json:"has_rush_items"`
}

// TableReady is the one-shot signal emitted when a table turns ready.
type TableReady struct {
	TableID    TableID   `json:"table_id"`
	TableName  string    `json:"table_name"`
	TotalItems int       `json:"total_items"`
	HasRush    bool      `json:"has_rush"`
	At         time.Time `json:"at"`
}

// ReadyMemory remembers, per table, whether it was ready at the last evaluation.
type ReadyMemory map[TableID]bool

// ComputeTableStatus folds a table's lines into its status. The result does
// not depend on the order of lines.
func ComputeTableStatus(lines []PrepLine, now time.Time) TableStatus {
	var ts TableStatus
	for _, line := range lines {
		ts.TotalItems++
		switch line.Status {
		case prepstatus.Statuses.Pending:
			ts.PendingCount++
		case prepstatus.Statuses.Preparing:
			ts.PreparingCount++
		case prepstatus.Statuses.Ready:
			ts.ReadyCount++
		case prepstatus.Statuses.Served:
			ts.ServedCount++
		}
		if line.IsRush {
			ts.HasRushItems = true
		}
		if line.SentAt != nil && (ts.OldestSentAt == nil || line.SentAt.Before(*ts.OldestSentAt)) {
			sent := *line.SentAt
			ts.OldestSentAt = &sent
		}
	}

	switch {
	case ts.TotalItems == 0:
		ts.Status = tablestatus.Statuses.Idle
	case ts.ReadyCount == ts.TotalItems:
		ts.Status = tablestatus.Statuses.Ready
	case ts.PreparingCount > 0:
		ts.Status = tablestatus.Statuses.Preparing
	case ts.PendingCount > 0:
		ts.Status = tablestatus.Statuses.Pending
	default:
		ts.Status = tablestatus.Statuses.Served
	}

	ts.ElapsedMinutes = elapsedMinutes(ts.OldestSentAt, now)
	return ts
}

func elapsedMinutes(since *time.Time, now time.Time) int {
	if since == nil {
		return 0
	}
	d := now.Sub(*since)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// AggregateTables computes one TableStatus per table present in tickets,
// sorted by table id. Tables without lines are idle.
func AggregateTables(tickets []TicketInfo, lines []PrepLine, now time.Time) []TableStatus {
	tableOf := make(map[TicketID]TableID, len(tickets))
	names := make(map[TableID]string)
	byTable := make(map[TableID][]PrepLine)

	sorted := make([]TicketInfo, len(tickets))
	copy(sorted, tickets)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TicketID.String() < sorted[j].TicketID.String()
	})

	for _, t := range sorted {
		tableOf[t.TicketID] = t.TableID
		if _, ok := byTable[t.TableID]; !ok {
			byTable[t.TableID] = nil
		}
		if names[t.TableID] == "" {
			names[t.TableID] = t.TableName
		}
	}

	for _, line := range lines {
		tableID, ok := tableOf[line.TicketID]
		if !ok {
			continue
		}
		byTable[tableID] = append(byTable[tableID], line)
	}

	out := make([]TableStatus, 0, len(byTable))
	for tableID, tableLines := range byTable {
		ts := ComputeTableStatus(tableLines, now)
		ts.TableID = tableID
		ts.TableName = names[tableID]
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TableID.String() < out[j].TableID.String()
	})
	return out
}

// DetectReady compares statuses against the previous memory and returns the
// next memory together with one TableReady per table that just turned ready.
// Tables absent from statuses are forgotten.
func DetectReady(prev ReadyMemory, statuses []TableStatus, now time.Time) (ReadyMemory, []TableReady) {
	next := make(ReadyMemory, len(statuses))
	var fired []TableReady
	for _, ts := range statuses {
		isReady := ts.Status == tablestatus.Statuses.Ready
		if isReady && !prev[ts.TableID] {
			fired = append(fired, TableReady{
				TableID:    ts.TableID,
				TableName:  ts.TableName,
				TotalItems: ts.TotalItems,
				HasRush:    ts.HasRushItems,
				At:         now,
			})
		}
		next[ts.TableID] = isReady
	}
	return next, fired
}
