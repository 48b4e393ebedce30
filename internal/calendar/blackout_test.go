package calendar

import (
	"testing"
	"time"

	"github.com/odiszapc/bitget-bot/internal/config"
)

func testNews() config.News {
	return config.News{
		BlackoutMinutes: 30,
		Events: []config.NewsEvent{
			{Name: "FOMC", Date: "2025-06-18", Time: "18:00"},
			{Name: "CPI", Date: "2025-06-11", Time: "12:30"},
		},
	}
}

func TestInBlackoutAroundEvent(t *testing.T) {
	cal, err := FromConfig(testNews())
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}

	cases := []struct {
		at   time.Time
		want bool
		name string
	}{
		{time.Date(2025, 6, 18, 17, 29, 0, 0, time.UTC), false, ""},
		{time.Date(2025, 6, 18, 17, 30, 0, 0, time.UTC), true, "FOMC"},
		{time.Date(2025, 6, 18, 18, 0, 0, 0, time.UTC), true, "FOMC"},
		{time.Date(2025, 6, 18, 18, 30, 0, 0, time.UTC), true, "FOMC"},
		{time.Date(2025, 6, 18, 18, 31, 0, 0, time.UTC), false, ""},
		{time.Date(2025, 6, 11, 12, 45, 0, 0, time.UTC), true, "CPI"},
	}
	for _, tc := range cases {
		got, name := cal.InBlackout(tc.at)
		if got != tc.want || name != tc.name {
			t.Fatalf("at %s: got (%v,%q), want (%v,%q)", tc.at, got, name, tc.want, tc.name)
		}
	}
}

func TestFromConfigRejectsMalformedEvent(t *testing.T) {
	news := config.News{BlackoutMinutes: 30, Events: []config.NewsEvent{{Name: "bad", Date: "18-06-2025", Time: "18:00"}}}
	if _, err := FromConfig(news); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestEmptyCalendarNeverBlocks(t *testing.T) {
	cal, err := FromConfig(config.News{BlackoutMinutes: 30})
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	if in, _ := cal.InBlackout(time.Now()); in {
		t.Fatalf("empty calendar must never block")
	}
}
