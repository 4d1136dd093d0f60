// Package scheduler runs periodic maintenance jobs over the exchange
// and message collections.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lukaszglowacz/sports-messenger/databases"
	"github.com/lukaszglowacz/sports-messenger/messaging"
	"github.com/lukaszglowacz/sports-messenger/models"
)

// StalePendingAge is how long a PENDING exchange may sit unanswered
// before the nightly purge removes it, freeing the pair for a fresh
// request.
const StalePendingAge = 30 * 24 * time.Hour

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron *cron.Cron
	EDB  databases.ExchangeDatabase
	MDB  databases.MessageDatabase
	loc  *time.Location
}

// NewScheduler creates a new scheduler instance pinned to the
// deployment's reference time zone
func NewScheduler(eDB databases.ExchangeDatabase, mDB databases.MessageDatabase, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		EDB:  eDB,
		MDB:  mDB,
		loc:  loc,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Purge unanswered exchange requests daily at 3 AM
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeStalePending)
	if err != nil {
		zap.S().Errorw("failed to register stale pending purge job", "error", err)
	}

	// Log the previous day's message volume shortly after midnight
	_, err = s.cron.AddFunc("5 0 * * *", s.logDailyVolume)
	if err != nil {
		zap.S().Errorw("failed to register daily volume job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("maintenance scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("maintenance scheduler stopped")
}

// purgeStalePending deletes PENDING exchanges older than StalePendingAge
func (s *Scheduler) purgeStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-StalePendingAge)
	filter := bson.M{
		"status":    models.ExchangePending,
		"createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	deleted, err := s.EDB.DeleteMany(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to purge stale pending exchanges", "error", err)
		return
	}
	zap.S().Infow("purged stale pending exchanges", "deleted", deleted)
}

// logDailyVolume logs how many messages were sent during the previous day
func (s *Scheduler) logDailyVolume() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start, end := messaging.DayWindow(time.Now().In(s.loc).AddDate(0, 0, -1), s.loc)
	count, err := s.MDB.CountDocuments(ctx, bson.M{
		"createdAt": bson.M{
			"$gte": primitive.NewDateTimeFromTime(start),
			"$lt":  primitive.NewDateTimeFromTime(end),
		},
	})
	if err != nil {
		zap.S().Errorw("failed to count daily message volume", "error", err)
		return
	}
	zap.S().Infow("daily message volume", "day", start.Format("2006-01-02"), "messages", count)
}
