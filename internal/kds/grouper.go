package kds

import (
	"sort"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/enums/station"
)

// BoardKind selects which lines a board shows.
type BoardKind string

const (
	// BoardActive shows lines that have not been served yet.
	BoardActive BoardKind = "active"
	// BoardHistory shows served lines, read only.
	BoardHistory BoardKind = "history"
)

// CourseSlot is one serving wave of a station order.
type CourseSlot struct {
	CourseNumber int        `json:"course_number"`
	Lines        []PrepLine `json:"lines"`
	IsMarched    bool       `json:"is_marched"`
}

// StationOrder is a ticket's lines for one station, as shown on a monitor.
type StationOrder struct {
	TicketID     TicketID        `json:"ticket_id"`
	TableName    string          `json:"table_name"`
	Station      station.Station `json:"station"`
	Courses      []CourseSlot    `json:"courses"`
	OldestSentAt *time.Time      `json:"oldest_sent_at,omitempty"`
	HasRush      bool            `json:"has_rush"`
}

// ProductTotal is the outstanding quantity of one item across a board.
type ProductTotal struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// Board is everything one monitor displays.
type Board struct {
	MonitorID string         `json:"monitor_id"`
	Kind      BoardKind      `json:"kind"`
	Orders    []StationOrder `json:"orders"`
	Products  []ProductTotal `json:"products"`
	// Rows holds indexes into Orders, one slice per display row.
	Rows [][]int `json:"rows"`
}

type orderKey struct {
	ticketID TicketID
	station  string
}

// GroupBoard projects lines into the station orders a monitor displays.
// It is a pure function of its inputs.
func GroupBoard(lines []PrepLine, tickets map[TicketID]TicketInfo, marches MarchSet, m Monitor, kind BoardKind) Board {
	grouped := make(map[orderKey]map[int][]PrepLine)
	for _, line := range lines {
		if !m.Shows(line.Station) || !kindIncludes(kind, line) {
			continue
		}
		key := orderKey{ticketID: line.TicketID, station: line.Station.Code()}
		courses, ok := grouped[key]
		if !ok {
			courses = make(map[int][]PrepLine)
			grouped[key] = courses
		}
		courses[line.Course] = append(courses[line.Course], line)
	}

	orders := make([]StationOrder, 0, len(grouped))
	for key, courses := range grouped {
		order := StationOrder{
			TicketID:  key.ticketID,
			TableName: tickets[key.ticketID].TableName,
			Station:   station.ByNameOrDefault(key.station),
		}

		numbers := make([]int, 0, len(courses))
		for n := range courses {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		for _, n := range numbers {
			courseLines := courses[n]
			sortLines(courseLines)
			for _, l := range courseLines {
				if l.IsRush {
					order.HasRush = true
				}
				if l.SentAt != nil && (order.OldestSentAt == nil || l.SentAt.Before(*order.OldestSentAt)) {
					sent := *l.SentAt
					order.OldestSentAt = &sent
				}
			}
			order.Courses = append(order.Courses, CourseSlot{
				CourseNumber: n,
				Lines:        courseLines,
				IsMarched:    marches.IsMarched(key.ticketID, n),
			})
		}
		orders = append(orders, order)
	}

	sortOrders(orders)
	if m.NewestSide == NewestLeft {
		for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
			orders[i], orders[j] = orders[j], orders[i]
		}
	}

	return Board{
		MonitorID: m.ID,
		Kind:      kind,
		Orders:    orders,
		Products:  aggregateProducts(orders),
		Rows:      arrangeRows(orders, m),
	}
}

func kindIncludes(kind BoardKind, line PrepLine) bool {
	if kind == BoardHistory {
		return line.Status == prepstatus.Statuses.Served
	}
	return line.Status != prepstatus.Statuses.Served
}

func sortLines(lines []PrepLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if c := compareSent(a.SentAt, b.SentAt); c != 0 {
			return c < 0
		}
		return a.ID.String() < b.ID.String()
	})
}

// sortOrders sorts FIFO: oldest sentAt first, unsent last.
func sortOrders(orders []StationOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if c := compareSent(a.OldestSentAt, b.OldestSentAt); c != 0 {
			return c < 0
		}
		if a.TicketID != b.TicketID {
			return a.TicketID.String() < b.TicketID.String()
		}
		return a.Station.Order() < b.Station.Order()
	})
}

// compareSent orders timestamps ascending with nil after any value.
func compareSent(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	default:
		return 0
	}
}

// aggregateProducts sums quantities still to be cooked per item name.
func aggregateProducts(orders []StationOrder) []ProductTotal {
	totals := make(map[string]int)
	for _, order := range orders {
		for _, course := range order.Courses {
			for _, line := range course.Lines {
				if line.Status.AtLeast(prepstatus.Statuses.Ready) {
					continue
				}
				totals[line.ItemName] += line.Quantity
			}
		}
	}

	products := make([]ProductTotal, 0, len(totals))
	for name, qty := range totals {
		products = append(products, ProductTotal{ItemName: name, Quantity: qty})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].ItemName < products[j].ItemName
	})
	return products
}

func sortByCourse(lines []PrepLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Course < lines[j].Course
	})
}
