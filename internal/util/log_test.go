package util

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerParsesLevel(t *testing.T) {
	log := NewLogger("warn")
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %s", log.GetLevel())
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	for _, level := range []string{"not-a-level", ""} {
		log := NewLogger(level)
		if log.GetLevel() != zerolog.InfoLevel {
			t.Fatalf("level %q: expected info fallback, got %s", level, log.GetLevel())
		}
	}
}
