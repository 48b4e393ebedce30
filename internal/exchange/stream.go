package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PriceStream keeps a live mark-price cache fed by the Bitget public
// websocket. The engine reads it once per cycle for trailing-stop
// evaluation and falls back to REST tickers when an entry is stale;
// nothing in the decision path is driven by push callbacks.
type PriceStream struct {
	url string
	log zerolog.Logger

	mu      sync.RWMutex
	symbols []string
	prices  map[string]streamPrice
}

type streamPrice struct {
	last float64
	at   time.Time
}

// NewPriceStream builds a stream against the given websocket URL.
func NewPriceStream(url string, log zerolog.Logger) *PriceStream {
	return &PriceStream{url: url, log: log, prices: make(map[string]streamPrice)}
}

// SetSymbols replaces the tracked symbol list. The next (re)connect
// subscribes to the new set.
func (s *PriceStream) SetSymbols(symbols []string) {
	s.mu.Lock()
	s.symbols = append(s.symbols[:0], symbols...)
	s.mu.Unlock()
}

// Price returns the cached mark price when it is younger than maxAge.
func (s *PriceStream) Price(symbol string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	if !ok || time.Since(p.at) > maxAge {
		return 0, false
	}
	return p.last, true
}

// Run consumes the websocket until the context is canceled, reconnecting
// with capped exponential backoff.
func (s *PriceStream) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("price stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

type tickerPush struct {
	Action string `json:"action"`
	Arg    struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		LastPr string `json:"lastPr"`
	} `json:"data"`
}

func (s *PriceStream) consume(ctx context.Context) error {
	s.mu.RLock()
	symbols := append([]string(nil), s.symbols...)
	s.mu.RUnlock()
	if len(symbols) == 0 {
		// Nothing to track yet; poll the symbol list instead of dialing.
		select {
		case <-time.After(5 * time.Second):
			return fmt.Errorf("no symbols subscribed")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	type subArg struct {
		InstType string `json:"instType"`
		Channel  string `json:"channel"`
		InstID   string `json:"instId"`
	}
	args := make([]subArg, len(symbols))
	for i, sym := range symbols {
		args[i] = subArg{InstType: productType, Channel: "ticker", InstID: sym}
	}
	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	s.log.Info().Strs("symbols", symbols).Msg("price stream connected")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(45 * time.Second))

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					s.log.Warn().Err(err).Msg("price stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(45 * time.Second))
		if string(message) == "pong" {
			continue
		}

		var push tickerPush
		if err := json.Unmarshal(message, &push); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode ticker push")
			continue
		}
		if push.Arg.Channel != "ticker" || len(push.Data) == 0 {
			continue
		}
		px, err := strconv.ParseFloat(push.Data[0].LastPr, 64)
		if err != nil || px <= 0 {
			continue
		}
		s.mu.Lock()
		s.prices[push.Arg.InstID] = streamPrice{last: px, at: time.Now()}
		s.mu.Unlock()
	}
}
