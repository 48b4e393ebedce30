package market

import (
	"fmt"
	"time"
)

// timeframes maps the configured candle timeframe onto its interval.
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseTimeframe resolves a timeframe label like "15m" to a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	if d, ok := timeframes[tf]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown timeframe %q", tf)
}
