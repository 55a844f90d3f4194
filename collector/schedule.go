package collector

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// parseDailyAt reads an "HH:MM" time of day.
func parseDailyAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("collector: schedule.daily_at %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// nextDaily returns the first hour:minute strictly after now, in now's
// location.
func nextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// RunDaily triggers a run every day at Schedule.DailyAt (in the configured
// time zone) until ctx is done. It returns immediately when no schedule is
// configured. Run failures are logged by Run and do not stop the loop.
func (c *Collector) RunDaily(ctx context.Context) error {
	if c.cfg.Schedule.DailyAt == "" {
		return nil
	}
	hour, minute, err := parseDailyAt(c.cfg.Schedule.DailyAt)
	if err != nil {
		return err
	}

	for {
		now := c.now().In(c.loc)
		next := nextDaily(now, hour, minute)
		c.log.Info("collector: next scheduled run", "at", next.Format(time.RFC3339))

		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}

		c.Run(context.WithoutCancel(ctx), "schedule")
	}
}
