// Package exchange hosts the Bitget connector and the capability
// interface the decision engine consumes.
package exchange

import (
	"context"

	"github.com/odiszapc/bitget-bot/internal/market"
)

// OrderRequest describes one short entry with its protective orders.
type OrderRequest struct {
	Symbol          string
	Size            float64 // base units
	Leverage        float64
	StopPrice       float64
	TakeProfitPrice float64
}

// Client is the abstract exchange capability. The engine never talks to
// the wire directly; everything it needs from the venue goes through
// this interface, which also makes the integration tests trivial to fake.
type Client interface {
	ListInstruments(ctx context.Context) ([]market.Instrument, error)
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error)
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
	FetchTicker(ctx context.Context, symbol string) (market.Ticker, error)
	FetchBalance(ctx context.Context) (float64, error)
	FetchOpenPositions(ctx context.Context) ([]market.ExchangePosition, error)
	OpenShort(ctx context.Context, req OrderRequest) (orderID string, err error)
	ClosePosition(ctx context.Context, symbol string) error
	UpdateStopLoss(ctx context.Context, symbol string, newStop float64) error
}
