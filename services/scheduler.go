// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"vread-backend/models"

	"github.com/go-co-op/gocron/v2"
)

// StartPublishScheduler flips scheduled books to published once their
// publish time passes.
func (s *BookService) StartPublishScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: publish scheduled books
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var books []models.Book
			now := time.Now()
			err := s.DB.Where("status = ? AND publish_at <= ?", models.BookStatusScheduled, now).
				Find(&books).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, b := range books {
				b.Status = models.BookStatusPublished
				b.PublishAt = nil
				if err := s.DB.Save(&b).Error; err != nil {
					log.Printf("[Scheduler] Failed to publish book %s: %v", b.ID, err)
				} else {
					log.Printf("✅ Auto-published book: %s", b.Title)
				}
			}
		}),
	)
}

// StartDailyJob schedules the streak-nudge run in the streak timezone.
func (n *StreakNudgeService) StartDailyJob(ctx context.Context, hour int) {
	sched, _ := gocron.NewScheduler(gocron.WithLocation(n.Loc))
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), 0, 0))),
		gocron.NewTask(func() {
			if err := n.Run(ctx); err != nil {
				log.Printf("[Scheduler] streak nudge run failed: %v", err)
			}
		}),
	)
}
