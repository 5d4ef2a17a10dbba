package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekdays is the set of days a vehicle can be booked on.
type Weekdays []time.Weekday

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// AllWeekdays returns Monday..Sunday.
func AllWeekdays() Weekdays {
	return Weekdays{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
}

// ParseWeekday accepts short or long English day names, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// ParseWeekdays parses a comma separated list such as "mon,tue,wed".
func ParseWeekdays(s string) (Weekdays, error) {
	var days Weekdays
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func (w Weekdays) Contains(day time.Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

func (w Weekdays) names() []string {
	out := make([]string, 0, len(w))
	for _, d := range w {
		out = append(out, strings.ToLower(d.String()[:3]))
	}
	return out
}

// String renders the storage form, e.g. "mon,tue".
func (w Weekdays) String() string {
	return strings.Join(w.names(), ",")
}

func (w Weekdays) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.names())
}

func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	return w.fromNames(names)
}

func (w *Weekdays) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	return w.fromNames(names)
}

func (w Weekdays) MarshalYAML() (interface{}, error) {
	return w.names(), nil
}

func (w *Weekdays) fromNames(names []string) error {
	days := make(Weekdays, 0, len(names))
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return err
		}
		days = append(days, d)
	}
	*w = days
	return nil
}
