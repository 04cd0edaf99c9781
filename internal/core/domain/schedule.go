package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ScheduleFrequency string

const (
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

type Schedule struct {
	ID            int64             `db:"id"`
	Name          string            `db:"name"`
	Frequency     ScheduleFrequency `db:"frequency"`
	TimeOfDay     string            `db:"time_of_day"`  // "HH:MM", interpreted as UTC
	DayOfWeek     *int              `db:"day_of_week"`  // 0-6 (Sunday-Saturday), weekly only
	DayOfMonth    *int              `db:"day_of_month"` // 1-28, monthly only
	RetentionDays int               `db:"retention_days"`
	Active        bool              `db:"active"`
	LastRunAt     *time.Time        `db:"last_run_at"`
	NextRunAt     *time.Time        `db:"next_run_at"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

func NewSchedule(name string, frequency ScheduleFrequency, timeOfDay string, retentionDays int) *Schedule {
	now := time.Now().UTC()
	return &Schedule{
		Name:          name,
		Frequency:     frequency,
		TimeOfDay:     timeOfDay,
		RetentionDays: retentionDays,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ParseTimeOfDay splits the "HH:MM" field into hour and minute.
func (s *Schedule) ParseTimeOfDay() (hour, minute int, err error) {
	parts := strings.SplitN(s.TimeOfDay, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time_of_day %q, expected HH:MM", s.TimeOfDay)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in time_of_day %q", s.TimeOfDay)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in time_of_day %q", s.TimeOfDay)
	}
	return hour, minute, nil
}

// CronSpec derives the five-field cron expression for this schedule.
// Weekly schedules without a day default to Sunday, monthly schedules
// without a day default to the 1st.
func (s *Schedule) CronSpec() (string, error) {
	hour, minute, err := s.ParseTimeOfDay()
	if err != nil {
		return "", err
	}
	switch s.Frequency {
	case FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case FrequencyWeekly:
		dow := 0
		if s.DayOfWeek != nil {
			dow = *s.DayOfWeek
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, dow), nil
	case FrequencyMonthly:
		dom := 1
		if s.DayOfMonth != nil {
			dom = *s.DayOfMonth
		}
		return fmt.Sprintf("%d %d %d * *", minute, hour, dom), nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s.Frequency)
	}
}
