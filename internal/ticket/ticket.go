// Package ticket renders station tickets for 80mm thermal paper.
package ticket

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Width is the printable column count of 80mm paper at the default font.
const Width = 48

const (
	timeLayout  = "2006-01-02 15:04"
	rushBanner  = "*** RUSH ***"
	indent      = "   "
	shortIDSize = 8
)

// Header is the metadata printed above the items.
type Header struct {
	Station    string
	TableName  string
	ServerName string
	TicketID   string
	PrintedAt  time.Time
}

// Line is one item of the ticket.
type Line struct {
	Quantity  int
	ItemName  string
	Course    int
	Modifiers []string
	Notes     string
	IsRush    bool
}

// Ticket is everything one station prints for one ticket.
type Ticket struct {
	Header Header
	Lines  []Line
}

// HasRush reports whether any line is marked rush.
func (t Ticket) HasRush() bool {
	for _, l := range t.Lines {
		if l.IsRush {
			return true
		}
	}
	return false
}

type glyphSet struct {
	add      string
	remove   string
	swap     string
	ellipsis string
}

var (
	textGlyphs    = glyphSet{add: "+", remove: "✗", swap: "↔", ellipsis: "…"}
	printerGlyphs = glyphSet{add: "+", remove: "x", swap: "<>", ellipsis: "..."}
)

func (g glyphSet) prefix(kind ModifierKind) string {
	switch kind {
	case Removal:
		return g.remove
	case Substitution:
		return g.swap
	default:
		return g.add
	}
}

// RenderText returns the plain-text ticket. No line is wider than Width.
func RenderText(t Ticket) string {
	var b strings.Builder
	for _, row := range headerRows(t.Header, textGlyphs) {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	for _, row := range bodyRows(t, textGlyphs) {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func headerRows(h Header, g glyphSet) []string {
	rule := strings.Repeat("=", Width)
	rows := []string{
		rule,
		center(strings.ToUpper(h.Station), Width, g),
		rule,
	}
	return append(rows, metaRows(h, g)...)
}

func metaRows(h Header, g glyphSet) []string {
	var rows []string
	if h.TableName != "" {
		rows = append(rows, fit("Table: "+h.TableName, Width, g))
	}
	if h.ServerName != "" {
		rows = append(rows, fit("Server: "+h.ServerName, Width, g))
	}
	if h.TicketID != "" {
		rows = append(rows, fit("Ticket: "+shortID(h.TicketID), Width, g))
	}
	if !h.PrintedAt.IsZero() {
		rows = append(rows, h.PrintedAt.Format(timeLayout))
	}
	return rows
}

func bodyRows(t Ticket, g glyphSet) []string {
	rows := []string{strings.Repeat("-", Width)}

	lines := make([]Line, len(t.Lines))
	copy(lines, t.Lines)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Course < lines[j].Course
	})

	course := 0
	for _, l := range lines {
		if l.Course != course {
			course = l.Course
			rows = append(rows, courseSeparator(course, g))
		}
		rows = append(rows, lineRows(l, g)...)
	}

	rows = append(rows, strings.Repeat("-", Width))
	if t.HasRush() {
		rows = append(rows, center(rushBanner, Width, g))
	}
	return rows
}

func courseSeparator(course int, g glyphSet) string {
	label := fmt.Sprintf(" Course %d ", course)
	pad := Width - utf8.RuneCountInString(label)
	if pad < 2 {
		return fit(label, Width, g)
	}
	left := pad / 2
	return strings.Repeat("-", left) + label + strings.Repeat("-", pad-left)
}

func lineRows(l Line, g glyphSet) []string {
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	rows := []string{fit(fmt.Sprintf("%dx %s", qty, l.ItemName), Width, g)}

	for _, m := range l.Modifiers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		rows = append(rows, fit(indent+g.prefix(ModifierKindOf(m))+" "+m, Width, g))
	}

	for _, note := range strings.Split(l.Notes, "\n") {
		note = strings.TrimSpace(note)
		if note == "" {
			continue
		}
		rows = append(rows, fit(indent+"Note: "+note, Width, g))
	}
	return rows
}

// fit truncates s to width runes, ending in the ellipsis when cut.
func fit(s string, width int, g glyphSet) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	keep := width - utf8.RuneCountInString(g.ellipsis)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + g.ellipsis
}

func center(s string, width int, g glyphSet) string {
	s = fit(s, width, g)
	pad := (width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func shortID(id string) string {
	if len(id) <= shortIDSize {
		return id
	}
	return id[:shortIDSize]
}
