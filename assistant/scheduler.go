package assistant

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cron expressions for the periodic jobs.
const (
	weeklyReportSpec = "0 21 * * 0" // Sunday 21:00
	alertSweepSpec   = "0 9 * * *"  // daily 09:00
)

// Scheduler runs the weekly report and daily alert sweep in the background.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(a *Assistant, logger *zap.Logger) (*Scheduler, error) {
	if a == nil {
		return nil, fmt.Errorf("NewScheduler: assistant is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New()
	if _, err := c.AddFunc(weeklyReportSpec, func() {
		logger.Info("scheduled weekly report run")
		reports := a.GenerateWeeklyReports()
		for kind, path := range reports {
			logger.Info("weekly report written",
				zap.String("kind", kind), zap.String("path", path))
		}
	}); err != nil {
		return nil, fmt.Errorf("NewScheduler: %w", err)
	}
	if _, err := c.AddFunc(alertSweepSpec, func() {
		logger.Info("scheduled alert sweep")
		a.CheckAlerts()
	}); err != nil {
		return nil, fmt.Errorf("NewScheduler: %w", err)
	}

	return &Scheduler{cron: c, log: logger}, nil
}

// Start begins running jobs in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
