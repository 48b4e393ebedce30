package exchange

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRun wraps a Client and suppresses every order-placing call while
// passing all market and account reads through. Each suppressed call is
// logged at info level so paper sessions are auditable.
type DryRun struct {
	Client
	log zerolog.Logger
}

// NewDryRun wraps inner so that nothing it does can move real money.
func NewDryRun(inner Client, log zerolog.Logger) *DryRun {
	return &DryRun{Client: inner, log: log}
}

func (d *DryRun) OpenShort(ctx context.Context, req OrderRequest) (string, error) {
	d.log.Info().
		Str("symbol", req.Symbol).
		Float64("size", req.Size).
		Float64("leverage", req.Leverage).
		Float64("stopPrice", req.StopPrice).
		Float64("takeProfitPrice", req.TakeProfitPrice).
		Msg("dry-run: would open short")
	return "dry-run", nil
}

func (d *DryRun) ClosePosition(ctx context.Context, symbol string) error {
	d.log.Info().Str("symbol", symbol).Msg("dry-run: would close position")
	return nil
}

func (d *DryRun) UpdateStopLoss(ctx context.Context, symbol string, stopPrice float64) error {
	d.log.Info().
		Str("symbol", symbol).
		Float64("stopPrice", stopPrice).
		Msg("dry-run: would move stop loss")
	return nil
}
