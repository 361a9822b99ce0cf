// Package export renders timeline events as iCalendar, YAML, CSV or
// Markdown.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"gopkg.in/yaml.v3"

	"github.com/xvierd/kage-cli/internal/domain"
)

// Format names an output encoding.
type Format string

const (
	FormatICS      Format = "ics"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
)

// Formats lists the supported formats.
var Formats = []Format{FormatICS, FormatYAML, FormatCSV, FormatMarkdown}

// DefaultEventLength is the duration given to events in calendar output,
// since the server only records a start time.
const DefaultEventLength = 30 * time.Minute

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (want ics, yaml, csv or md)", s)
}

// Day is the timeline of one date.
type Day struct {
	Date   string         `yaml:"date"`
	Events []domain.Event `yaml:"-"`
}

// Options tunes the output.
type Options struct {
	Location *time.Location
	Now      time.Time
}

// Write renders days in format to w.
func Write(w io.Writer, format Format, days []Day, opts Options) error {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	days = confirmedOnly(days)

	switch format {
	case FormatICS:
		return writeICS(w, days, opts)
	case FormatYAML:
		return writeYAML(w, days)
	case FormatCSV:
		return writeCSV(w, days)
	case FormatMarkdown:
		return writeMarkdown(w, days)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeICS(w io.Writer, days []Day, opts Options) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//kage//timeline export//EN")

	for _, day := range days {
		for _, ev := range domain.SortEvents(day.Events) {
			start, err := eventStart(day.Date, ev.Time, opts.Location)
			if err != nil {
				return err
			}
			vevent := cal.AddEvent(fmt.Sprintf("%s-%s@kage", day.Date, ev.ID))
			vevent.SetDtStampTime(opts.Now)
			vevent.SetStartAt(start)
			vevent.SetEndAt(start.Add(DefaultEventLength))
			vevent.SetSummary(ev.Title)
			if t := ev.EventType(); t != "" {
				vevent.SetDescription(t)
			}
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

func eventStart(date, clock string, loc *time.Location) (time.Time, error) {
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation(domain.DateLayout+" "+domain.ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event time %s %s: %w", date, clock, err)
	}
	return t, nil
}

type yamlEvent struct {
	ID          string `yaml:"id"`
	Time        string `yaml:"time"`
	Title       string `yaml:"title"`
	EventType   string `yaml:"event_type,omitempty"`
	ValueNumber string `yaml:"value_number,omitempty"`
}

type yamlSection struct {
	Part   string      `yaml:"part"`
	Events []yamlEvent `yaml:"events"`
}

type yamlDay struct {
	Date     string        `yaml:"date"`
	Sections []yamlSection `yaml:"sections"`
}

func writeYAML(w io.Writer, days []Day) error {
	out := make([]yamlDay, 0, len(days))
	for _, day := range days {
		yd := yamlDay{Date: day.Date}
		for _, section := range domain.BucketEvents(day.Events) {
			if len(section.Items) == 0 {
				continue
			}
			ys := yamlSection{Part: string(section.Key)}
			for _, ev := range section.Items {
				ys.Events = append(ys.Events, yamlEvent{
					ID:          ev.ID,
					Time:        ev.Time,
					Title:       ev.Title,
					EventType:   ev.EventType(),
					ValueNumber: ev.ValueNumber(),
				})
			}
			yd.Sections = append(yd.Sections, ys)
		}
		out = append(out, yd)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func writeCSV(w io.Writer, days []Day) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "time", "part", "id", "title", "event_type", "value_number"}); err != nil {
		return err
	}
	for _, day := range days {
		for _, ev := range domain.SortEvents(day.Events) {
			row := []string{
				day.Date,
				ev.Time,
				string(domain.DayPartOf(ev.Time)),
				ev.ID,
				ev.Title,
				ev.EventType(),
				ev.ValueNumber(),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMarkdown(w io.Writer, days []Day) error {
	var b strings.Builder
	for i, day := range days {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", day.Date)
		if len(day.Events) == 0 {
			b.WriteString("\n_No events._\n")
			continue
		}
		for _, section := range domain.BucketEvents(day.Events) {
			if len(section.Items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n## %s\n\n", section.Label)
			for _, ev := range section.Items {
				fmt.Fprintf(&b, "- **%s** %s\n", ev.Time, ev.Title)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// confirmedOnly drops events that were never saved on the server.
func confirmedOnly(days []Day) []Day {
	out := make([]Day, len(days))
	for i, day := range days {
		out[i] = Day{Date: day.Date}
		for _, ev := range day.Events {
			if !ev.IsPending() {
				out[i].Events = append(out[i].Events, ev)
			}
		}
	}
	return out
}
