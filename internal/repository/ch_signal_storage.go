package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"AutoTrader/internal/domain/models"
	pkgch "AutoTrader/pkg/clickhouse"
)

// CHSignalStorage keeps the history of every cycle in the signals table.
type CHSignalStorage struct {
	db    *sql.DB
	table string
}

func NewCHSignalStorage(ch *pkgch.Client) *CHSignalStorage {
	return &CHSignalStorage{db: ch.DB(), table: ch.Database() + ".signals"}
}

func (s *CHSignalStorage) PublishReport(ctx context.Context, r *models.CycleReport) error {
	if r == nil || len(r.Signals) == 0 {
		return nil
	}
	q, args := signalInsert(s.table, r)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store signals of cycle %s: %w", r.ID, err)
	}
	return nil
}

func signalInsert(table string, r *models.CycleReport) (string, []interface{}) {
	values := make([]string, 0, len(r.Signals))
	args := make([]interface{}, 0, len(r.Signals)*12)
	for _, sg := range r.Signals {
		secondary := sg.Secondary
		if secondary == nil {
			secondary = []float64{}
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.ID,
			sg.Pair,
			string(sg.Mode),
			string(sg.Direction),
			string(sg.Trend),
			string(sg.Status),
			sg.Price,
			sg.Target,
			sg.GainPct,
			sg.ConfidencePct,
			secondary,
			sg.GeneratedAt.UTC(),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (cycle_id, pair, mode, direction, trend, status, price, target, gain_pct, confidence_pct, secondary, generated_at) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}
