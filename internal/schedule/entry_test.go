package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseNormalises(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"at 14:30:00", "at 14:30:00"},
		{"AT 9:05", "at 09:05:00"},
		{"14:30", "at 14:30:00"},
		{"  at   23:59:59 ", "at 23:59:59"},
		{"every 10s", "every 10s"},
		{"every 90", "every 1m30s"},
		{"every 1h", "every 1h0m0s"},
		{"cron */5 * * * *", "cron */5 * * * *"},
		{"cron   0  9 * *   1-5", "cron 0 9 * * 1-5"},
	}

	for _, tt := range tests {
		e, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if e.Key() != tt.want {
			t.Errorf("Parse(%q).Key() = %q, want %q", tt.in, e.Key(), tt.want)
		}
		again, err := Parse(e.Key())
		if err != nil || again != e {
			t.Errorf("Key %q does not parse back to the same entry: %+v, %v", e.Key(), again, err)
		}
	}
}

func TestParseRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"at",
		"at 24:00:00",
		"at 12:60",
		"at 12:30:61",
		"at 12",
		"at 1:2:3:4",
		"at -1:00",
		"at 012:00",
		"every",
		"every 500ms",
		"every 0",
		"every soon",
		"cron",
		"cron * * * *",
		"cron 0 * * * * *",
		"cron a b c d e",
		"sometimes",
	}

	for _, in := range inputs {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("Parse(%q): expected ErrInvalidEntry, got %v", in, err)
		}
	}
}

func TestEvery(t *testing.T) {
	e, err := Every(10 * time.Second)
	if err != nil {
		t.Fatalf("Every: %v", err)
	}
	if e.Key() != "every 10s" {
		t.Errorf("Unexpected key %q", e.Key())
	}
	if _, err := Every(0); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for zero interval, got %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("14:30"); got != "at 14:30:00" {
		t.Errorf("NormalizeKey(14:30) = %q", got)
	}
	if got := NormalizeKey("  nonsense "); got != "nonsense" {
		t.Errorf("NormalizeKey(nonsense) = %q", got)
	}
}
