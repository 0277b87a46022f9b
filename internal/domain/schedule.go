package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ClockTime is a local time of day stored as minutes from midnight.
// It marshals to and from "HH:MM".
type ClockTime int

func ParseClock(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return ClockTime(h*60 + m), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// At anchors the clock time on a calendar day in the given location.
func (c ClockTime) At(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, c.Hour(), c.Minute(), 0, 0, loc)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type TimeWindow struct {
	Start ClockTime `json:"startTime"`
	End   ClockTime `json:"endTime"`
}

type DayAvailability struct {
	Weekday   time.Weekday `json:"dayOfWeek"`
	Available bool         `json:"isAvailable"`
	Windows   []TimeWindow `json:"slots"`
}

type WeeklySchedule struct {
	bun.BaseModel `bun:"table:provider_schedules"`

	ProviderID    string             `bun:"provider_id,pk" json:"providerId"`
	Timezone      string             `bun:"timezone,notnull" json:"timezone"`
	BufferMinutes int                `bun:"buffer_minutes,notnull" json:"bufferMinutes"`
	Days          [7]DayAvailability `bun:"days,type:jsonb" json:"days"`
	CreatedAt     time.Time          `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time          `bun:"updated_at,notnull" json:"updatedAt"`
}

func (s *WeeklySchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Day returns the availability entry for a weekday. Days is indexed
// Sunday..Saturday, matching time.Weekday.
func (s *WeeklySchedule) Day(wd time.Weekday) DayAvailability {
	return s.Days[int(wd)]
}

func (s *WeeklySchedule) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (s *WeeklySchedule) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

// Validate checks a schedule as submitted by provider settings. Overlap
// between windows of the same day is deliberately not rejected; the slot
// generator treats each window independently.
func (s *WeeklySchedule) Validate() error {
	if s.ProviderID == "" {
		return errors.New("provider_id is required")
	}
	if s.BufferMinutes < 0 {
		return errors.New("buffer_minutes must not be negative")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q", s.Timezone)
		}
	}
	for i, day := range s.Days {
		if day.Weekday != time.Weekday(i) {
			return fmt.Errorf("days[%d] has day_of_week %s, want %s", i, day.Weekday, time.Weekday(i))
		}
		for _, w := range day.Windows {
			if w.Start >= w.End {
				return fmt.Errorf("days[%d] window %s-%s: start must be before end", i, w.Start, w.End)
			}
		}
	}
	return nil
}

// DefaultWeeklySchedule returns a closed schedule with correctly tagged days.
func DefaultWeeklySchedule(providerID string) WeeklySchedule {
	s := WeeklySchedule{ProviderID: providerID, Timezone: "UTC"}
	for i := range s.Days {
		s.Days[i].Weekday = time.Weekday(i)
	}
	return s
}
