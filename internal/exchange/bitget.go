package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/odiszapc/bitget-bot/internal/market"
	"github.com/odiszapc/bitget-bot/internal/metrics"
)

const productType = "USDT-FUTURES"

// granularities maps config timeframes onto Bitget candle granularity labels.
var granularities = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1H", "4h": "4H", "1d": "1D",
}

// Bitget is the REST client for Bitget USDT-margined perpetual futures.
// Every call passes through the shared rate limiter and retry policy.
type Bitget struct {
	baseURL    string
	key        string
	secret     string
	passphrase string
	demo       bool

	httpc   *http.Client
	limiter *Limiter
	retry   RetryPolicy
	log     zerolog.Logger
	calls   atomic.Int64
}

// Option configures Bitget construction parameters.
type Option func(*Bitget)

// WithRetryPolicy overrides the default retry behaviour.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(b *Bitget) { b.retry = p }
}

// WithRateLimit overrides the request-per-second ceiling.
func WithRateLimit(ratePerSec float64) Option {
	return func(b *Bitget) { b.limiter = NewLimiter(ratePerSec) }
}

// NewBitget constructs a client against the given base URL. Demo mode
// routes orders to the paper-trading environment via a request header.
func NewBitget(baseURL, key, secret, passphrase string, demo bool, log zerolog.Logger, opts ...Option) *Bitget {
	b := &Bitget{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		key:        key,
		secret:     secret,
		passphrase: passphrase,
		demo:       demo,
		httpc:      &http.Client{Timeout: 10 * time.Second},
		limiter:    NewLimiter(20),
		retry:      DefaultRetryPolicy(),
		log:        log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// APICalls returns the number of REST calls since the last reset.
func (b *Bitget) APICalls() int64 { return b.calls.Load() }

// ResetAPICalls zeroes the per-cycle call counter.
func (b *Bitget) ResetAPICalls() { b.calls.Store(0) }

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (b *Bitget) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return b.retry.Do(ctx, func(ctx context.Context) error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		b.calls.Add(1)
		metrics.APICallsTotal.Inc()

		var payload []byte
		if body != nil {
			var err error
			if payload, err = json.Marshal(body); err != nil {
				return fmt.Errorf("marshal body: %w", err)
			}
		}

		fullPath := path
		if len(query) > 0 {
			fullPath += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, b.baseURL+fullPath, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		b.sign(req, method, fullPath, payload)

		resp, err := b.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{Kind: KindTransient, Status: resp.StatusCode, Message: err.Error()}
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return &APIError{Kind: classify(resp.StatusCode, ""), Status: resp.StatusCode, Message: string(raw)}
		}
		if env.Code != "" && env.Code != "00000" {
			return &APIError{Kind: classify(resp.StatusCode, env.Code), Status: resp.StatusCode, Code: env.Code, Message: env.Msg}
		}
		if resp.StatusCode != http.StatusOK {
			return &APIError{Kind: classify(resp.StatusCode, env.Code), Status: resp.StatusCode, Code: env.Code, Message: env.Msg}
		}
		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return &APIError{Kind: KindBadData, Status: resp.StatusCode, Message: fmt.Sprintf("decode data: %v", err)}
			}
		}
		return nil
	})
}

// sign applies the Bitget HMAC-SHA256 request signature.
func (b *Bitget) sign(req *http.Request, method, fullPath string, body []byte) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(b.secret))
	mac.Write([]byte(ts + strings.ToUpper(method) + fullPath))
	mac.Write(body)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ACCESS-KEY", b.key)
	req.Header.Set("ACCESS-SIGN", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	req.Header.Set("ACCESS-TIMESTAMP", ts)
	req.Header.Set("ACCESS-PASSPHRASE", b.passphrase)
	if b.demo {
		req.Header.Set("paptrading", "1")
	}
}

type tickerPayload struct {
	Symbol     string `json:"symbol"`
	LastPr     string `json:"lastPr"`
	Change24h  string `json:"change24h"`
	UsdtVolume string `json:"usdtVolume"`
}

// ListInstruments returns every USDT perpetual with its 24h quote volume.
func (b *Bitget) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	q := url.Values{"productType": {productType}}
	var payload []tickerPayload
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/market/tickers", q, nil, &payload); err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	out := make([]market.Instrument, 0, len(payload))
	for _, t := range payload {
		vol, err := strconv.ParseFloat(t.UsdtVolume, 64)
		if err != nil {
			continue
		}
		out = append(out, market.Instrument{Symbol: t.Symbol, Volume24h: vol})
	}
	return out, nil
}

// FetchCandles returns up to limit closed candles, oldest first.
func (b *Bitget) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (market.Series, error) {
	gran, ok := granularities[timeframe]
	if !ok {
		return market.Series{}, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	interval, err := market.ParseTimeframe(timeframe)
	if err != nil {
		return market.Series{}, err
	}

	q := url.Values{
		"symbol":      {symbol},
		"productType": {productType},
		"granularity": {gran},
		"limit":       {strconv.Itoa(limit)},
	}
	var rows [][]string
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/market/candles", q, nil, &rows); err != nil {
		return market.Series{}, fmt.Errorf("fetch candles %s: %w", symbol, err)
	}

	series := market.Series{Symbol: symbol, Interval: interval, Candles: make([]market.Candle, 0, len(rows))}
	for _, row := range rows {
		if len(row) < 6 {
			return market.Series{}, &APIError{Kind: KindBadData, Message: fmt.Sprintf("candle row for %s too short", symbol)}
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return market.Series{}, &APIError{Kind: KindBadData, Message: fmt.Sprintf("candle timestamp for %s: %v", symbol, err)}
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			if vals[i], err = strconv.ParseFloat(row[i+1], 64); err != nil {
				return market.Series{}, &APIError{Kind: KindBadData, Message: fmt.Sprintf("candle field for %s: %v", symbol, err)}
			}
		}
		series.Candles = append(series.Candles, market.Candle{
			Ts: time.UnixMilli(ms).UTC(), Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return series, nil
}

// FetchFundingRate returns the current funding rate as a fraction.
func (b *Bitget) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"symbol": {symbol}, "productType": {productType}}
	var payload []struct {
		FundingRate string `json:"fundingRate"`
	}
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/market/current-fund-rate", q, nil, &payload); err != nil {
		return 0, fmt.Errorf("fetch funding rate %s: %w", symbol, err)
	}
	if len(payload) == 0 || payload[0].FundingRate == "" {
		return 0, &APIError{Kind: KindBadData, Message: fmt.Sprintf("no funding rate for %s", symbol)}
	}
	rate, err := strconv.ParseFloat(payload[0].FundingRate, 64)
	if err != nil {
		return 0, &APIError{Kind: KindBadData, Message: fmt.Sprintf("funding rate for %s: %v", symbol, err)}
	}
	return rate, nil
}

// FetchTicker returns the latest price and 24h change for one symbol.
func (b *Bitget) FetchTicker(ctx context.Context, symbol string) (market.Ticker, error) {
	q := url.Values{"symbol": {symbol}, "productType": {productType}}
	var payload []tickerPayload
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/market/ticker", q, nil, &payload); err != nil {
		return market.Ticker{}, fmt.Errorf("fetch ticker %s: %w", symbol, err)
	}
	if len(payload) == 0 {
		return market.Ticker{}, &APIError{Kind: KindBadData, Message: fmt.Sprintf("no ticker for %s", symbol)}
	}
	last, err := strconv.ParseFloat(payload[0].LastPr, 64)
	if err != nil {
		return market.Ticker{}, &APIError{Kind: KindBadData, Message: fmt.Sprintf("ticker price for %s: %v", symbol, err)}
	}
	// Bitget reports the 24h change as a fraction.
	change, _ := strconv.ParseFloat(payload[0].Change24h, 64)
	return market.Ticker{Symbol: symbol, Last: last, Change24h: change * 100}, nil
}

// FetchBalance returns total USDT equity across the futures account.
func (b *Bitget) FetchBalance(ctx context.Context) (float64, error) {
	q := url.Values{"productType": {productType}}
	var payload []struct {
		MarginCoin    string `json:"marginCoin"`
		AccountEquity string `json:"accountEquity"`
	}
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/account/accounts", q, nil, &payload); err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	for _, acct := range payload {
		if acct.MarginCoin == "USDT" {
			equity, err := strconv.ParseFloat(acct.AccountEquity, 64)
			if err != nil {
				return 0, &APIError{Kind: KindBadData, Message: fmt.Sprintf("account equity: %v", err)}
			}
			return equity, nil
		}
	}
	return 0, nil
}

// FetchOpenPositions returns the exchange's authoritative live positions.
func (b *Bitget) FetchOpenPositions(ctx context.Context) ([]market.ExchangePosition, error) {
	q := url.Values{"productType": {productType}}
	var payload []struct {
		Symbol       string `json:"symbol"`
		HoldSide     string `json:"holdSide"`
		Total        string `json:"total"`
		OpenPriceAvg string `json:"openPriceAvg"`
		Leverage     string `json:"leverage"`
		UnrealizedPL string `json:"unrealizedPL"`
	}
	if err := b.do(ctx, http.MethodGet, "/api/v2/mix/position/all-position", q, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch open positions: %w", err)
	}
	out := make([]market.ExchangePosition, 0, len(payload))
	for _, p := range payload {
		size, err := strconv.ParseFloat(p.Total, 64)
		if err != nil || size <= 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.OpenPriceAvg, 64)
		lev, _ := strconv.ParseFloat(p.Leverage, 64)
		upl, _ := strconv.ParseFloat(p.UnrealizedPL, 64)
		out = append(out, market.ExchangePosition{
			Symbol: p.Symbol, Side: p.HoldSide, Size: size,
			EntryPrice: entry, Leverage: lev, UnrealizedPnL: upl,
		})
	}
	return out, nil
}

// OpenShort sets cross margin and leverage, then places a market short
// with preset stop-loss and take-profit triggers.
func (b *Bitget) OpenShort(ctx context.Context, req OrderRequest) (string, error) {
	// Both calls fail harmlessly when the account is already configured.
	if err := b.setMarginMode(ctx, req.Symbol); err != nil {
		b.log.Debug().Err(err).Str("symbol", req.Symbol).Msg("set margin mode")
	}
	if err := b.setLeverage(ctx, req.Symbol, req.Leverage); err != nil {
		b.log.Warn().Err(err).Str("symbol", req.Symbol).Msg("set leverage")
	}

	body := map[string]string{
		"symbol":                 req.Symbol,
		"productType":            productType,
		"marginMode":             "crossed",
		"marginCoin":             "USDT",
		"side":                   "sell",
		"orderType":              "market",
		"size":                   strconv.FormatFloat(req.Size, 'f', -1, 64),
		"clientOid":              uuid.NewString(),
		"presetStopLossPrice":    strconv.FormatFloat(req.StopPrice, 'f', -1, 64),
		"presetStopSurplusPrice": strconv.FormatFloat(req.TakeProfitPrice, 'f', -1, 64),
	}
	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := b.do(ctx, http.MethodPost, "/api/v2/mix/order/place-order", nil, body, &resp); err != nil {
		return "", fmt.Errorf("open short %s: %w", req.Symbol, err)
	}
	metrics.OrdersTotal.WithLabelValues(req.Symbol, "open").Inc()
	return resp.OrderID, nil
}

// ClosePosition flash-closes the short at market.
func (b *Bitget) ClosePosition(ctx context.Context, symbol string) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"holdSide":    "short",
	}
	if err := b.do(ctx, http.MethodPost, "/api/v2/mix/order/close-positions", nil, body, nil); err != nil {
		return fmt.Errorf("close position %s: %w", symbol, err)
	}
	metrics.OrdersTotal.WithLabelValues(symbol, "close").Inc()
	return nil
}

// UpdateStopLoss replaces the position-level stop trigger.
func (b *Bitget) UpdateStopLoss(ctx context.Context, symbol string, newStop float64) error {
	body := map[string]string{
		"symbol":       symbol,
		"productType":  productType,
		"marginCoin":   "USDT",
		"planType":     "pos_loss",
		"holdSide":     "short",
		"triggerPrice": strconv.FormatFloat(newStop, 'f', -1, 64),
		"triggerType":  "mark_price",
	}
	if err := b.do(ctx, http.MethodPost, "/api/v2/mix/order/place-pos-tpsl", nil, body, nil); err != nil {
		return fmt.Errorf("update stop loss %s: %w", symbol, err)
	}
	metrics.OrdersTotal.WithLabelValues(symbol, "stop_update").Inc()
	return nil
}

func (b *Bitget) setMarginMode(ctx context.Context, symbol string) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  "USDT",
		"marginMode":  "crossed",
	}
	return b.do(ctx, http.MethodPost, "/api/v2/mix/account/set-margin-mode", nil, body, nil)
}

func (b *Bitget) setLeverage(ctx context.Context, symbol string, leverage float64) error {
	body := map[string]string{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  "USDT",
		"leverage":    strconv.FormatFloat(leverage, 'f', -1, 64),
	}
	return b.do(ctx, http.MethodPost, "/api/v2/mix/account/set-leverage", nil, body, nil)
}
