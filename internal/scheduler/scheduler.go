package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/config"
	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/presentation"
	"github.com/mamadbah2/cafeledger/internal/service/reporting"
	"github.com/mamadbah2/cafeledger/internal/service/whatsapp"
)

const runTimeout = 2 * time.Minute

// ReportGenerator builds reports on demand.
type ReportGenerator interface {
	Generate(ctx context.Context, period reporting.Period) (reporting.Report, error)
}

// ReportArchive stores report snapshots.
type ReportArchive interface {
	SaveReport(ctx context.Context, report models.ReportSnapshot) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	reports      ReportGenerator
	archive      ReportArchive
	messagingSvc whatsapp.MessagingService
	cfg          config.ReportingConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. archive and messagingSvc are
// optional; a nil value skips that step.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, reports ReportGenerator, archive ReportArchive, messagingSvc whatsapp.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// Standard 5-field cron expressions evaluated in the ledger timezone.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:         c,
		reports:      reports,
		archive:      archive,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the daily report job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendDailyReport); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("daily report run failed", zap.Error(err))
	}
}

// RunOnce generates the daily report, archives it and delivers it. Archive
// and delivery failures are both attempted and joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Info("generating daily report")

	report, err := s.reports.Generate(ctx, reporting.PeriodDaily)
	if err != nil {
		return fmt.Errorf("generate daily report: %w", err)
	}

	var errs []error

	if s.archive != nil {
		if err := s.archive.SaveReport(ctx, report.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("archive daily report: %w", err))
		} else {
			s.logger.Info("daily report archived")
		}
	}

	if s.messagingSvc != nil && s.cfg.Recipient != "" {
		msg := models.OutboundMessage{
			To:   s.cfg.Recipient,
			Body: presentation.RenderReport(report),
		}
		if err := s.messagingSvc.SendOutbound(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("send daily report: %w", err))
		} else {
			s.logger.Info("daily report sent successfully")
		}
	}

	return errors.Join(errs...)
}
