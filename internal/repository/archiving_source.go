package repository

import (
	"context"

	"AutoTrader/internal/domain/models"
	domrepo "AutoTrader/internal/domain/repository"
	applogger "AutoTrader/pkg/logger"
)

// ArchivingSource stores every series it fetches. Archive failures are
// logged, the fetched series is still returned.
type ArchivingSource struct {
	next    domrepo.CandleSource
	archive domrepo.CandleArchive
	l       *applogger.Logger
	m       domrepo.Metrics
}

func NewArchivingSource(next domrepo.CandleSource, archive domrepo.CandleArchive, l *applogger.Logger, m domrepo.Metrics) *ArchivingSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingSource{next: next, archive: archive, l: l.With("archive"), m: m}
}

func (s *ArchivingSource) Fetch(ctx context.Context, pair string, tf domrepo.Timeframe, minBars, limit int) (models.CandleSeries, error) {
	series, err := s.next.Fetch(ctx, pair, tf, minBars, limit)
	if err != nil {
		return series, err
	}
	if err := s.archive.StoreCandles(ctx, series); err != nil {
		if s.m != nil {
			s.m.RecordError("archive")
		}
		s.l.Warn("archive candles failed",
			applogger.String("pair", pair),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
	}
	return series, nil
}
