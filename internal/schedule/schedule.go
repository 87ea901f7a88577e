package schedule

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Daltonicc/SwiftPaperBot/internal/config"
)

// parseDaily converts an HH:MM wall-clock string into a daily cron schedule.
func parseDaily(clock string) (cron.Schedule, error) {
	hour, min, err := config.ParseClock(clock)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time '%s': %w", clock, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(fmt.Sprintf("%d %d * * *", min, hour))
	if err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	return sched, nil
}

// RunDaily blocks, invoking job every day at the given HH:MM wall-clock time
// in loc.
func RunDaily(clock string, loc *time.Location, job func()) error {
	sched, err := parseDaily(clock)
	if err != nil {
		return err
	}

	log.Printf("scheduler started daily at %s (%s)", clock, loc)

	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("next run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)
		job()
	}
}
