package repository

import (
	"context"
	"errors"
	"fmt"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	applogger "AutoTrader/pkg/logger"
)

// NamedSignalSink labels a sink in logs and metrics.
type NamedSignalSink struct {
	Name string
	Sink domrepo.SignalSink
}

// NamedReportSink labels a report sink in logs and metrics.
type NamedReportSink struct {
	Name string
	Sink domrepo.ReportSink
}

// MultiSink fans out to every sink. A failing sink does not stop the others;
// the joined error is returned after all of them ran.
type MultiSink struct {
	signals []NamedSignalSink
	reports []NamedReportSink
	l       *applogger.Logger
	m       domrepo.Metrics
}

func NewMultiSink(signals []NamedSignalSink, reports []NamedReportSink, l *applogger.Logger, m domrepo.Metrics) *MultiSink {
	if l == nil {
		l = applogger.Nop()
	}
	return &MultiSink{signals: signals, reports: reports, l: l.With("sinks"), m: m}
}

func (s *MultiSink) Publish(ctx context.Context, pair string, mode models.Mode, sg models.Signal) error {
	var errs []error
	for _, ns := range s.signals {
		if err := ns.Sink.Publish(ctx, pair, mode, sg); err != nil {
			s.fail(ns.Name, err, applogger.String("pair", pair), applogger.String("mode", mode.Key()))
			errs = append(errs, fmt.Errorf("%s: %w", ns.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *MultiSink) PublishReport(ctx context.Context, r *models.CycleReport) error {
	var errs []error
	for _, ns := range s.reports {
		if err := ns.Sink.PublishReport(ctx, r); err != nil {
			s.fail(ns.Name, err, applogger.String("cycle_id", r.ID))
			errs = append(errs, fmt.Errorf("%s: %w", ns.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *MultiSink) fail(name string, err error, fields ...applogger.Field) {
	if s.m != nil {
		s.m.RecordError("sink_" + name)
	}
	s.l.Error("sink publish failed", append([]applogger.Field{applogger.String("sink", name), applogger.Error(err)}, fields...)...)
}

// Len is the number of configured sinks of both kinds.
func (s *MultiSink) Len() int { return len(s.signals) + len(s.reports) }
