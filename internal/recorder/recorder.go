package recorder

import "time"

// TradeOpen records one short entry with its protective levels.
type TradeOpen struct {
	Symbol          string
	OrderID         string
	EntryPrice      float64
	Size            float64
	Leverage        float64
	StopPrice       float64
	TakeProfitPrice float64
	SignalCount     int
	RSI             float64
	OpenedAt        time.Time
}

// TradeClose records a position leaving the book, whoever closed it.
type TradeClose struct {
	Symbol      string
	EntryPrice  float64
	Size        float64
	RealizedPct float64
	ClosedAt    time.Time
	Reason      string // "exchange", "halt", "manual"
}

// CycleReport summarizes one scan cycle.
type CycleReport struct {
	StartedAt     time.Time
	Duration      time.Duration
	Scanned       int
	Candidates    int
	Opened        int
	OpenPositions int
	DailyPnLPct   float64
	Halted        bool
	APICalls      int64
}

// Recorder persists trade history for later analysis.
type Recorder interface {
	RecordOpen(t *TradeOpen) error
	RecordClose(t *TradeClose) error
	RecordCycle(r *CycleReport) error
	Close() error
}
