// Package scheduler runs housekeeping jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"movie-reservation/internal/data/repository"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron     gocron.Scheduler
	sessions repository.SessionRepository
	log      *zap.Logger
	now      func() time.Time
}

func New(sessions repository.SessionRepository, log *zap.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		cron:     cron,
		sessions: sessions,
		log:      log.With(zap.String("component", "scheduler")),
		now:      time.Now,
	}, nil
}

// RegisterSessionSweep deletes expired and revoked sessions on the given crontab
func (s *Scheduler) RegisterSessionSweep(crontab string) error {
	_, err := s.cron.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(s.sweepSessions),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register session sweep %q: %w", crontab, err)
	}
	return nil
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.sessions.CleanExpiredSessions(ctx, s.now())
	if err != nil {
		s.log.Error("Session sweep failed", zap.Error(err))
		return
	}
	s.log.Info("Session sweep finished", zap.Int64("removed", removed))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", zap.Int("jobs", len(s.cron.Jobs())))
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
