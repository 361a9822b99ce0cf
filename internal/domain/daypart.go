package domain

import (
	"sort"
)

// DayPart is one of the four fixed windows of the timeline.
type DayPart string

const (
	DayPartMorning   DayPart = "morning"
	DayPartNoon      DayPart = "noon"
	DayPartAfternoon DayPart = "afternoon"
	DayPartNight     DayPart = "night"
)

// Window boundaries in minutes since midnight.
const (
	noonStart      = 11*60 + 30
	noonEnd        = 13*60 + 30
	afternoonLimit = 17*60 + 30
)

// Section groups the events of one day part.
type Section struct {
	Key   DayPart
	Label string
	Items []Event
}

// DayPartOf places an HH:MM time in its window: morning before 11:30,
// noon from 11:30 through 13:30, afternoon before 17:30, night after.
func DayPartOf(clock string) DayPart {
	minutes := ToMinutes(clock)
	switch {
	case minutes < noonStart:
		return DayPartMorning
	case minutes <= noonEnd:
		return DayPartNoon
	case minutes < afternoonLimit:
		return DayPartAfternoon
	default:
		return DayPartNight
	}
}

// Label returns the display name of the day part.
func (p DayPart) Label() string {
	switch p {
	case DayPartMorning:
		return "Morning"
	case DayPartNoon:
		return "Noon"
	case DayPartAfternoon:
		return "Afternoon"
	case DayPartNight:
		return "Night"
	default:
		return string(p)
	}
}

// SortEvents orders events by their HH:MM time. Ties keep input order.
func SortEvents(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

// BucketEvents sorts events and partitions them into the four sections,
// always returned in morning, noon, afternoon, night order.
func BucketEvents(events []Event) []Section {
	parts := []DayPart{DayPartMorning, DayPartNoon, DayPartAfternoon, DayPartNight}
	sections := make([]Section, len(parts))
	index := make(map[DayPart]int, len(parts))
	for i, p := range parts {
		sections[i] = Section{Key: p, Label: p.Label(), Items: []Event{}}
		index[p] = i
	}
	for _, e := range SortEvents(events) {
		i := index[DayPartOf(e.Time)]
		sections[i].Items = append(sections[i].Items, e)
	}
	return sections
}
