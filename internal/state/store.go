// Package state persists the engine snapshot and reconciles it against
// the exchange's authoritative position list on startup.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/odiszapc/bitget-bot/internal/pnl"
	"github.com/odiszapc/bitget-bot/internal/position"
)

// Snapshot is the sole unit of persistence. Nothing outside it survives
// a restart.
type Snapshot struct {
	Positions    []position.Position `json:"positions"`
	DailyPnL     pnl.Daily           `json:"dailyPnl"`
	StartBalance float64             `json:"startBalance"`
	LastCycleAt  time.Time           `json:"lastCycleAt"`
}

// ErrCorrupt wraps a snapshot that exists but cannot be decoded. Callers
// recover by starting from empty state and relying on reconciliation.
var ErrCorrupt = errors.New("corrupt state snapshot")

// Store reads and writes the snapshot file. The orchestrator is the only
// writer; no separate reader process is assumed.
type Store struct {
	path string
}

// NewStore creates a store around the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the last snapshot. A missing file yields an empty
// snapshot with no error; an unreadable or malformed file yields an
// empty snapshot plus an error wrapping ErrCorrupt so the caller can
// log loudly without crashing.
func (s *Store) Load(now time.Time) (Snapshot, error) {
	empty := Snapshot{DailyPnL: pnl.NewDaily(now)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return empty, nil
		}
		return empty, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return empty, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.DailyPnL.DayStart == "" {
		snap.DailyPnL = pnl.NewDaily(now)
	}
	return snap, nil
}

// Save writes the snapshot atomically: marshal to a temporary file in
// the same directory, then rename over the live path. A crash mid-write
// can never leave a truncated snapshot behind.
func (s *Store) Save(snap Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
