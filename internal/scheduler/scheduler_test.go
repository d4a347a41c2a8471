package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/cafeledger/internal/config"
	"github.com/mamadbah2/cafeledger/internal/domain/models"
	"github.com/mamadbah2/cafeledger/internal/service/reporting"
)

type fakeReports struct {
	periods []reporting.Period
	err     error
}

func (f *fakeReports) Generate(ctx context.Context, period reporting.Period) (reporting.Report, error) {
	f.periods = append(f.periods, period)
	if f.err != nil {
		return reporting.Report{}, f.err
	}
	empty := reporting.Section{Empty: true, Notice: "no sales this period"}
	since := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return reporting.Report{
		Period:      period,
		GeneratedAt: since.Add(20 * time.Hour),
		Since:       &since,
		Purchases:   reporting.PurchaseSection{Section: reporting.Section{Count: 1}},
		Processing:  reporting.ProcessingSection{Section: empty},
		Expenses:    reporting.ExpenseSection{Section: empty},
		Sales:       reporting.SaleSection{Section: empty},
	}, nil
}

type fakeArchive struct {
	saved []models.ReportSnapshot
	err   error
}

func (f *fakeArchive) SaveReport(ctx context.Context, report models.ReportSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, report)
	return nil
}

type fakeMessaging struct {
	sent []models.OutboundMessage
	err  error
}

func (f *fakeMessaging) SendOutbound(ctx context.Context, req models.OutboundMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

func TestRunOnceArchivesAndSends(t *testing.T) {
	reports, archive, messaging := &fakeReports{}, &fakeArchive{}, &fakeMessaging{}
	cfg := config.ReportingConfig{CronSchedule: "0 20 * * *", Recipient: "51999999999"}
	s := NewScheduler(cfg, time.UTC, reports, archive, messaging, nil)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(reports.periods) != 1 || reports.periods[0] != reporting.PeriodDaily {
		t.Fatalf("periods: %v", reports.periods)
	}
	if len(archive.saved) != 1 || archive.saved[0].Period != "daily" {
		t.Fatalf("archived: %+v", archive.saved)
	}
	if len(messaging.sent) != 1 || messaging.sent[0].To != "51999999999" || !strings.Contains(messaging.sent[0].Body, "*DAILY REPORT") {
		t.Fatalf("sent: %+v", messaging.sent)
	}
}

func TestRunOnceWithoutOptionalSinks(t *testing.T) {
	s := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *"}, time.UTC, &fakeReports{}, nil, nil, nil)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

func TestRunOnceJoinsFailures(t *testing.T) {
	archiveErr := errors.New("mongo down")
	sendErr := errors.New("token expired")
	s := NewScheduler(config.ReportingConfig{Recipient: "1"}, time.UTC, &fakeReports{}, &fakeArchive{err: archiveErr}, &fakeMessaging{err: sendErr}, nil)

	err := s.RunOnce(context.Background())
	if !errors.Is(err, archiveErr) || !errors.Is(err, sendErr) {
		t.Fatalf("got %v, want both failures", err)
	}
}

func TestRunOnceStopsWhenReportFails(t *testing.T) {
	messaging := &fakeMessaging{}
	s := NewScheduler(config.ReportingConfig{Recipient: "1"}, time.UTC, &fakeReports{err: errors.New("disk")}, nil, messaging, nil)
	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(messaging.sent) != 0 {
		t.Fatal("nothing should be sent when the report fails")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(config.ReportingConfig{CronSchedule: "every day"}, time.UTC, &fakeReports{}, nil, nil, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected schedule error")
	}
}
