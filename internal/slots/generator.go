package slots

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format of booking dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the label format of booking time slots.
	TimeLayout = "3:04 PM"
	// LongDateLayout renders dates on the confirmation step.
	LongDateLayout = "Monday, January 2, 2006"
)

// Schedule describes which dates and times the booking wizard offers.
type Schedule struct {
	DaysAhead    int            // calendar days after today to consider
	DaysOff      []time.Weekday // never offered
	FirstSlot    string         // "09:00"
	LastSlot     string         // "16:30", inclusive
	SlotDuration int            // minutes
}

// DefaultSchedule offers the next 14 weekdays and half-hour slots from 9:00 to 16:30.
func DefaultSchedule() Schedule {
	return Schedule{
		DaysAhead:    14,
		DaysOff:      []time.Weekday{time.Saturday, time.Sunday},
		FirstSlot:    "09:00",
		LastSlot:     "16:30",
		SlotDuration: 30,
	}
}

func (s Schedule) withDefaults() Schedule {
	def := DefaultSchedule()
	if s.DaysAhead <= 0 {
		s.DaysAhead = def.DaysAhead
	}
	if s.DaysOff == nil {
		s.DaysOff = def.DaysOff
	}
	if s.FirstSlot == "" {
		s.FirstSlot = def.FirstSlot
	}
	if s.LastSlot == "" {
		s.LastSlot = def.LastSlot
	}
	if s.SlotDuration <= 0 {
		s.SlotDuration = def.SlotDuration
	}
	return s
}

func (s Schedule) isDayOff(d time.Weekday) bool {
	for _, off := range s.DaysOff {
		if off == d {
			return true
		}
	}
	return false
}

// GenerateDates returns the bookable dates strictly after today and at most DaysAhead days later.
func (s Schedule) GenerateDates(today time.Time) []time.Time {
	s = s.withDefaults()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var dates []time.Time
	for i := 1; i <= s.DaysAhead; i++ {
		d := start.AddDate(0, 0, i)
		if s.isDayOff(d.Weekday()) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// GenerateTimes returns slot labels from FirstSlot through LastSlot.
func (s Schedule) GenerateTimes() ([]string, error) {
	s = s.withDefaults()
	ref := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := parseTimeOnDate(ref, s.FirstSlot)
	if err != nil {
		return nil, fmt.Errorf("parse first slot: %w", err)
	}
	last, err := parseTimeOnDate(ref, s.LastSlot)
	if err != nil {
		return nil, fmt.Errorf("parse last slot: %w", err)
	}

	step := time.Duration(s.SlotDuration) * time.Minute
	var labels []string
	for cursor := first; !cursor.After(last); cursor = cursor.Add(step) {
		labels = append(labels, cursor.Format(TimeLayout))
	}
	return labels, nil
}

// IsBookableDate reports whether date (YYYY-MM-DD) is one of the generated dates for today.
func (s Schedule) IsBookableDate(today time.Time, date string) bool {
	for _, d := range s.GenerateDates(today) {
		if d.Format(DateLayout) == date {
			return true
		}
	}
	return false
}

// IsBookableTime reports whether label is one of the generated slot labels.
func (s Schedule) IsBookableTime(label string) bool {
	times, err := s.GenerateTimes()
	if err != nil {
		return false
	}
	for _, t := range times {
		if t == label {
			return true
		}
	}
	return false
}

// SlotInfo is a time slot as shown to the visitor.
type SlotInfo struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// BookingChecker checks if a slot is already booked.
type BookingChecker interface {
	IsSlotBooked(ctx context.Context, date, timeSlot string) (bool, error)
}

// Generator marks time slots for a date as available or taken.
type Generator struct {
	schedule Schedule
	checker  BookingChecker
}

// NewGenerator creates a new slot generator. checker may be nil.
func NewGenerator(schedule Schedule, checker BookingChecker) *Generator {
	return &Generator{schedule: schedule.withDefaults(), checker: checker}
}

// Schedule returns the effective schedule.
func (g *Generator) Schedule() Schedule {
	return g.schedule
}

// SlotsForDate returns every slot label for date with its availability.
func (g *Generator) SlotsForDate(ctx context.Context, date string) ([]SlotInfo, error) {
	times, err := g.schedule.GenerateTimes()
	if err != nil {
		return nil, err
	}

	slots := make([]SlotInfo, 0, len(times))
	for _, label := range times {
		booked := false
		if g.checker != nil && date != "" {
			booked, err = g.checker.IsSlotBooked(ctx, date, label)
			if err != nil {
				return nil, fmt.Errorf("check slot: %w", err)
			}
		}
		slots = append(slots, SlotInfo{Time: label, Available: !booked})
	}
	return slots, nil
}

// FormatLongDate renders a YYYY-MM-DD date as "Tuesday, October 20, 2026".
func FormatLongDate(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.Format(LongDateLayout), nil
}

func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
