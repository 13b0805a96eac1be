// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartChallengeScheduler runs the two background jobs: finalizing abandoned
// attempts and refreshing question banks from the bucket.
func (s *QuizService) StartChallengeScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 10 minutes: close out attempts idle for 2h+ so abandoned
	// sessions still start the cooldown clock
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			s.SweepStaleAttempts(2 * time.Hour)
		}),
	)

	// Every 6 hours: pick up republished question banks
	_, _ = sched.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			s.Banks.Load(ctx)
		}),
	)

	log.Println("⏰ Challenge scheduler started (stale sweep + bank refresh)")
}
