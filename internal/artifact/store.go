package artifact

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/closedloop/econsim/internal/dealermetrics"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/ledger"
)

// Run is a started artifact run: the sqlite row identifying one
// simulation's output inside the store, so one artifact file can hold
// several runs (e.g. a parameter sweep) without collision.
type Run struct {
	ID        int64
	UUID      string
	Name      string
	Seed      uint64
	StartedAt string // RFC3339, caller-supplied (core never calls time.Now, see package money/ledger determinism notes)
}

// StartRun inserts a new run row, generating a fresh uuid for external
// cross-referencing (recommendation_repository.go's uuid.New().String()
// pattern, adapted here to a run-level id rather than a per-record one —
// spec.md §3's NextID counters already give every in-model record a
// deterministic id, so random ids are reserved for this run-level
// metadata only, per state.go's NextID doc comment).
func (s *Store) StartRun(name string, seed uint64, startedAt string) (*Run, error) {
	run := &Run{UUID: uuid.New().String(), Name: name, Seed: seed, StartedAt: startedAt}
	err := s.WithTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO runs (uuid, name, seed, started_at) VALUES (?, ?, ?, ?)`,
			run.UUID, run.Name, run.Seed, run.StartedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read run id: %w", err)
		}
		run.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// RecordEvents appends a batch of events.Event records (typically one
// day's worth, from ledger.Log.Slice) to the run's event log, in order.
func (s *Store) RecordEvents(runID int64, seqStart int, batch []events.Event) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO events (run_id, seq, day, phase, kind, payload) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare event insert: %w", err)
		}
		defer stmt.Close()

		for i, ev := range batch {
			payload, err := encodeEventPayload(ev.Data)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(runID, seqStart+i, ev.Day, ev.Phase, string(ev.Kind), payload); err != nil {
				return fmt.Errorf("insert event seq %d: %w", seqStart+i, err)
			}
		}
		return nil
	})
}

// LoadEvents reads back every event of runID in seq order, decoding each
// payload into its concrete events.Data type — the read half of spec.md
// §8 R3's "re-loading the artifact outputs... reproduces the same event
// log... byte-for-byte".
func (s *Store) LoadEvents(runID int64) ([]events.Event, error) {
	rows, err := s.conn.Query(
		`SELECT day, phase, kind, payload FROM events WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var day int
		var phase, kind string
		var payload []byte
		if err := rows.Scan(&day, &phase, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		data, err := decodeEventPayload(events.Type(kind), payload)
		if err != nil {
			return nil, err
		}
		out = append(out, events.Event{Kind: events.Type(kind), Day: day, Phase: phase, Data: data})
	}
	return out, rows.Err()
}

// RecordBalancesSnapshot persists one ledger.BalancesSnapshot (spec.md §6
// "balances snapshot").
func (s *Store) RecordBalancesSnapshot(runID int64, snap *ledger.BalancesSnapshot) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		lineStmt, err := tx.Prepare(
			`INSERT INTO balance_lines (run_id, day, agent_id, agent_kind, instrument_kind, net_assets, net_liabilities)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare balance line insert: %w", err)
		}
		defer lineStmt.Close()
		for _, l := range snap.Lines {
			if _, err := lineStmt.Exec(runID, snap.Day, l.AgentID, string(l.AgentKind), string(l.InstrumentKind),
				int64(l.NetAssets), int64(l.NetLiabilities)); err != nil {
				return fmt.Errorf("insert balance line: %w", err)
			}
		}

		stockStmt, err := tx.Prepare(
			`INSERT INTO stock_lines (run_id, day, agent_id, sku, quantity, value) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare stock line insert: %w", err)
		}
		defer stockStmt.Close()
		for _, l := range snap.Stocks {
			if _, err := stockStmt.Exec(runID, snap.Day, l.AgentID, l.SKU, l.Quantity, l.Value.String()); err != nil {
				return fmt.Errorf("insert stock line: %w", err)
			}
		}
		return nil
	})
}

// RecordDealerBucketMetrics persists one day's per-bucket dealer metrics
// (spec.md §6 "dealer metrics").
func (s *Store) RecordDealerBucketMetrics(runID int64, metrics []dealermetrics.BucketMetric) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO dealer_bucket_metrics
			 (run_id, day, bucket, bid, ask, inventory, dealer_cash, equity, interior_trades, passthrough_trades, passthrough_ratio)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare dealer metric insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range metrics {
			if _, err := stmt.Exec(runID, m.Day, m.Bucket, m.Bid, m.Ask, m.Inventory, m.DealerCash, m.Equity,
				m.InteriorTrades, m.PassthroughTrades, m.PassthroughRatio); err != nil {
				return fmt.Errorf("insert dealer metric: %w", err)
			}
		}
		return nil
	})
}

// RecordSafetyMarginSummary persists one day's cross-trader safety-margin
// summary statistics (spec.md §6 "trader safety margins").
func (s *Store) RecordSafetyMarginSummary(runID int64, day int, summary dealermetrics.Summary) error {
	return s.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO dealer_safety_margins (run_id, day, mean, stddev, min, max, n) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, day, summary.Mean, summary.StdDev, summary.Min, summary.Max, summary.N,
		)
		if err != nil {
			return fmt.Errorf("insert safety margin summary: %w", err)
		}
		return nil
	})
}
