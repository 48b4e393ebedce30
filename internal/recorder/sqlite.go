package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists trade history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	log zerolog.Logger
	mu  sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads do not block cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_opens (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         INTEGER NOT NULL,
			symbol            TEXT NOT NULL,
			order_id          TEXT,
			entry_price       REAL,
			size              REAL,
			leverage          REAL,
			stop_price        REAL,
			take_profit_price REAL,
			signal_count      INTEGER,
			rsi               REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opens_ts ON trade_opens(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trade_closes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			entry_price  REAL,
			size         REAL,
			realized_pct REAL,
			reason       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_closes_ts ON trade_closes(timestamp)`,

		`CREATE TABLE IF NOT EXISTS cycle_reports (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			duration_ms    INTEGER,
			scanned        INTEGER,
			candidates     INTEGER,
			opened         INTEGER,
			open_positions INTEGER,
			daily_pnl_pct  REAL,
			halted         INTEGER,
			api_calls      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycle_reports(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordOpen(t *TradeOpen) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trade_opens
		(timestamp, symbol, order_id, entry_price, size, leverage,
		 stop_price, take_profit_price, signal_count, rsi)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.OpenedAt.Unix(), t.Symbol, t.OrderID, t.EntryPrice, t.Size, t.Leverage,
		t.StopPrice, t.TakeProfitPrice, t.SignalCount, t.RSI,
	)
	return err
}

func (r *SQLiteRecorder) RecordClose(t *TradeClose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO trade_closes
		(timestamp, symbol, entry_price, size, realized_pct, reason)
		VALUES (?,?,?,?,?,?)`,
		t.ClosedAt.Unix(), t.Symbol, t.EntryPrice, t.Size, t.RealizedPct, t.Reason,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(c *CycleReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	halted := 0
	if c.Halted {
		halted = 1
	}
	_, err := r.db.Exec(`INSERT INTO cycle_reports
		(timestamp, duration_ms, scanned, candidates, opened,
		 open_positions, daily_pnl_pct, halted, api_calls)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		c.StartedAt.Unix(), c.Duration.Milliseconds(), c.Scanned, c.Candidates,
		c.Opened, c.OpenPositions, c.DailyPnLPct, halted, c.APICalls,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
