package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/services"
)

// SchedulerConfig holds the cron specs and windows of the background jobs.
type SchedulerConfig struct {
	MatchStatusSpec  string
	MatchDuration    time.Duration
	EventPruningSpec string
	EventRetention   time.Duration
}

// Scheduler runs periodic maintenance jobs: advancing match statuses and
// pruning the activity log.
type Scheduler struct {
	cron     *cron.Cron
	cfg      SchedulerConfig
	matchSvc services.MatchServiceProvider
	eventSvc services.EventServiceProvider
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(matchSvc services.MatchServiceProvider, eventSvc services.EventServiceProvider, cfg SchedulerConfig) *Scheduler {
	logger := cronLogger{log.Logger}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		cfg:      cfg,
		matchSvc: matchSvc,
		eventSvc: eventSvc,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the cron runner in the background.
func (s *Scheduler) Start() error {
	log.Info().Msg("Starting background scheduler...")
	if s.cfg.MatchStatusSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.MatchStatusSpec, s.advanceMatches); err != nil {
			return fmt.Errorf("invalid match status schedule %q: %w", s.cfg.MatchStatusSpec, err)
		}
	}
	if s.cfg.EventPruningSpec != "" && s.cfg.EventRetention > 0 {
		if _, err := s.cron.AddFunc(s.cfg.EventPruningSpec, s.pruneEvents); err != nil {
			return fmt.Errorf("invalid event pruning schedule %q: %w", s.cfg.EventPruningSpec, err)
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) advanceMatches() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.matchSvc.AdvanceStatuses(ctx, s.now(), s.cfg.MatchDuration)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to advance match statuses")
		s.jobFailed(ctx, "advance match statuses", err)
		return
	}
	if n > 0 {
		log.Info().Int("matches", n).Msg("Scheduler: Advanced match statuses")
	}
}

func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.EventRetention)
	n, err := s.eventSvc.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to prune events")
		s.jobFailed(ctx, "prune events", err)
		return
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Scheduler: Pruned old events")
}

// jobFailed records a failed run in the activity log so admins see it.
func (s *Scheduler) jobFailed(ctx context.Context, job string, jobErr error) {
	if s.eventSvc == nil {
		return
	}
	msg := fmt.Sprintf("Scheduled job %q failed: %v", job, jobErr)
	if err := s.eventSvc.CreateEvent(context.WithoutCancel(ctx), "system.job.failed", services.LevelError, msg, nil); err != nil {
		log.Warn().Err(err).Str("job", job).Msg("Scheduler: Failed to record job failure")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
