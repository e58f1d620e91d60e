package matchmaking

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the Monday-morning pre-generation pass so weekly-drop users
// see their candidate the moment they open the app, instead of paying the
// selection cost on first read.
type Scheduler struct {
	service Service
	hour    int
	minute  int
}

func NewScheduler(service Service, hour, minute int) *Scheduler {
	return &Scheduler{service: service, hour: hour, minute: minute}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.runWeekly(ctx, s.hour, s.minute, s.service.PrepareWeeklyDrops)
}

// runWeekly fires the task every Monday at hour:minute local time. The task
// is idempotent so a restart mid-window just re-runs a cheap no-op pass.
func (s *Scheduler) runWeekly(ctx context.Context, hour, minute int, task func(context.Context) error) {
	for {
		now := time.Now()
		next := nextMonday(now, hour, minute)

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				log.Printf("Weekly drop pre-generation failed: %v", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func nextMonday(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	daysUntilMonday := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, daysUntilMonday)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
