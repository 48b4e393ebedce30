// Package calendar resolves scheduled macro events into entry blackout windows.
package calendar

import (
	"fmt"
	"time"

	"github.com/odiszapc/bitget-bot/internal/config"
)

// Window is one closed interval around a macro event.
type Window struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether the instant falls inside the window, ends included.
func (w Window) Contains(now time.Time) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// Calendar is the blackout predicate consumed by the risk gatekeeper.
type Calendar struct {
	windows []Window
}

// FromConfig builds blackout windows of ±blackoutMinutes around each
// configured event. Malformed entries are reported, not skipped silently.
func FromConfig(news config.News) (*Calendar, error) {
	cal := &Calendar{}
	margin := time.Duration(news.BlackoutMinutes) * time.Minute
	for _, ev := range news.Events {
		at, err := time.ParseInLocation("2006-01-02 15:04", ev.Date+" "+ev.Time, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("news event %q: %w", ev.Name, err)
		}
		cal.windows = append(cal.windows, Window{Name: ev.Name, Start: at.Add(-margin), End: at.Add(margin)})
	}
	return cal, nil
}

// InBlackout reports whether any window covers the given instant, and
// which event caused it.
func (c *Calendar) InBlackout(now time.Time) (bool, string) {
	for _, w := range c.windows {
		if w.Contains(now) {
			return true, w.Name
		}
	}
	return false, ""
}
