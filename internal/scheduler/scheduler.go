package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GTAASentinel/internal/model"
	"GTAASentinel/internal/notifier"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner is the strategy host driven by the scheduler.
type Runner interface {
	DayStep(ctx context.Context, now time.Time) (*model.Evaluation, error)
	Latest() (*model.Evaluation, []model.TargetWeight)
	Snapshots() []model.TrackerSnapshot
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier notifier.Notifier
	Ctx      context.Context
	now      func() time.Time
	log      zerolog.Logger
}

// NewScheduler creates a scheduler whose cron expressions are read in loc.
func NewScheduler(ctx context.Context, runner Runner, n notifier.Notifier, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Runner:   runner,
		Notifier: n,
		Ctx:      ctx,
		now:      time.Now,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the daily step and the status report.
func (s *Scheduler) RegisterAll(dailyCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunDailyNow executes the daily step immediately.
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	now := s.now()
	s.log.Info().Time("now", now).Msg("running daily step")
	eval, err := s.Runner.DayStep(s.Ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("daily step")
		s.trySend(fmt.Sprintf("❌ Daily step failed: %v", err))
		return
	}
	if eval == nil {
		s.log.Debug().Msg("month already evaluated")
	}
}

func (s *Scheduler) reportTask() {
	s.log.Info().Msg("running status report")
	s.trySend(s.statusReport())
}

func (s *Scheduler) statusReport() string {
	var b strings.Builder
	b.WriteString(notifier.FormatTrackerStatus(s.Runner.Snapshots()))
	if eval, targets := s.Runner.Latest(); eval != nil {
		b.WriteString("\n")
		b.WriteString(notifier.FormatAllocationReport(eval, targets))
	}
	return b.String()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.TrimSpace(command) {
	case "/allocation":
		eval, targets := s.Runner.Latest()
		if eval == nil {
			return "No allocation has been evaluated yet."
		}
		return notifier.FormatAllocationReport(eval, targets)
	case "/status":
		return notifier.FormatTrackerStatus(s.Runner.Snapshots())
	case "/report":
		return s.statusReport()
	default:
		return "Available commands:\n• /allocation\n• /status\n• /report"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
