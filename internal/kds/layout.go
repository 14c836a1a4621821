package kds

import (
	"sort"

	"github.com/appetiteclub/kds/pkg/enums/viewmode"
)

// arrangeRows distributes orders over display rows according to the monitor view mode.
func arrangeRows(orders []StationOrder, m Monitor) [][]int {
	if len(orders) == 0 {
		return [][]int{}
	}

	switch m.ViewMode {
	case viewmode.Modes.Classic:
		return [][]int{sequence(len(orders))}
	case viewmode.Modes.Mixed:
		return [][]int{ticketsAdjacent(orders)}
	case viewmode.Modes.RowsInteractive:
		return chunkRows(len(orders), m.RowsCount)
	default:
		return [][]int{sequence(len(orders))}
	}
}

func sequence(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// ticketsAdjacent keeps the board order of each ticket's first appearance and
// pulls its other stations next to it.
func ticketsAdjacent(orders []StationOrder) []int {
	first := make(map[TicketID]int, len(orders))
	for i, o := range orders {
		if _, ok := first[o.TicketID]; !ok {
			first[o.TicketID] = i
		}
	}

	idx := sequence(len(orders))
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := orders[idx[i]], orders[idx[j]]
		if first[a.TicketID] != first[b.TicketID] {
			return first[a.TicketID] < first[b.TicketID]
		}
		return a.Station.Order() < b.Station.Order()
	})
	return idx
}

func chunkRows(n, rows int) [][]int {
	if rows < 1 {
		rows = 1
	}
	per := (n + rows - 1) / rows

	out := make([][]int, 0, rows)
	for start := 0; start < n; start += per {
		end := start + per
		if end > n {
			end = n
		}
		row := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			row = append(row, i)
		}
		out = append(out, row)
	}
	return out
}
