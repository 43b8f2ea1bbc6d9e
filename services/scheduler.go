// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Stale-room cleanup cadence. Rooms completed or idle past staleRoomMaxAge
// are removed.
const (
	cleanupInterval = 10 * time.Minute
	staleRoomMaxAge = 24 * time.Hour
)

// StartCleanupScheduler runs the periodic stale-room sweep until the context
// is canceled.
func (s *RoomService) StartCleanupScheduler(ctx context.Context) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[scheduler] failed to start: %v", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(cleanupInterval),
		gocron.NewTask(func() {
			if _, err := s.CleanupStaleRooms(ctx, staleRoomMaxAge); err != nil {
				log.Printf("[scheduler] room cleanup failed: %v", err)
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
