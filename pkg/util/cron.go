package util

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Five-field cron format: minute, hour, day of month, month, weekday.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr reports whether expr is a usable five-field schedule.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextCronTime returns the first activation of expr strictly after from, in UTC.
func NextCronTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from.UTC()), nil
}

// CronInterval is the gap between the next two activations of expr after from.
// Reminder sweeps use it as their look-ahead window.
func CronInterval(expr string, from time.Time) (time.Duration, error) {
	first, err := NextCronTime(expr, from)
	if err != nil {
		return 0, err
	}
	second, err := NextCronTime(expr, first)
	if err != nil {
		return 0, err
	}
	return second.Sub(first), nil
}
