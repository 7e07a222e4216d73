package doctor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clinicbook/clinicbook/pkg/clinictime"
)

// Window is a contiguous stretch of working time within one day.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyTemplate lists working windows per weekday, keyed by lowercase
// weekday name ("monday" ... "sunday").
type WeeklyTemplate map[string][]Window

// DefaultTemplate is Monday to Saturday, 10:00 to 21:00.
func DefaultTemplate() WeeklyTemplate {
	t := WeeklyTemplate{}
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		t[dayKey(wd)] = []Window{{Start: "10:00", End: "21:00"}}
	}
	return t
}

func dayKey(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

func (t WeeklyTemplate) For(wd time.Weekday) []Window {
	return t[dayKey(wd)]
}

// Validate checks weekday keys and that every window parses with start < end.
func (t WeeklyTemplate) Validate() error {
	known := make(map[string]bool, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		known[dayKey(wd)] = true
	}
	for day, windows := range t {
		if !known[day] {
			return fmt.Errorf("workingHours: unknown weekday %q", day)
		}
		for _, w := range windows {
			start, err := clinictime.ParseClock(w.Start)
			if err != nil {
				return fmt.Errorf("workingHours.%s: %w", day, err)
			}
			end, err := clinictime.ParseClock(w.End)
			if err != nil {
				return fmt.Errorf("workingHours.%s: %w", day, err)
			}
			if start >= end {
				return fmt.Errorf("workingHours.%s: window %s-%s ends before it starts", day, w.Start, w.End)
			}
		}
	}
	return nil
}

// SlotTimes expands the template for one weekday into slot start times: each
// window yields start, start+step, ... while the slot still fits before the
// window end. Overlapping windows are deduplicated and the result is ascending.
func SlotTimes(t WeeklyTemplate, wd time.Weekday, step int) []clinictime.Clock {
	if step <= 0 {
		return nil
	}
	seen := make(map[clinictime.Clock]bool)
	var out []clinictime.Clock
	for _, w := range t.For(wd) {
		start, err1 := clinictime.ParseClock(w.Start)
		end, err2 := clinictime.ParseClock(w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		for c := start; c.Add(step) <= end; c = c.Add(step) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SlotTimes returns the doctor's slot start times on date.
func (d *Doctor) SlotTimes(date time.Time) []clinictime.Clock {
	return SlotTimes(d.WorkingHours, date.Weekday(), d.SlotMinutes)
}

// DayFull reports whether active bookings have used up the daily capacity.
// Zero capacity means no cap.
func (d *Doctor) DayFull(active int) bool {
	return d.DailyCapacity > 0 && active >= d.DailyCapacity
}

// HasSlot reports whether c is one of the doctor's slot start times on date.
func (d *Doctor) HasSlot(date time.Time, c clinictime.Clock) bool {
	for _, s := range d.SlotTimes(date) {
		if s == c {
			return true
		}
	}
	return false
}
