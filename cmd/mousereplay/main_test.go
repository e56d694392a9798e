package main

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/spf13/afero"

	"mousereplay/internal/config"
	"mousereplay/internal/controller"
	"mousereplay/internal/hotkey"
	"mousereplay/internal/schedule"
)

func TestAddEntry(t *testing.T) {
	entries, e, err := addEntry([]string{"every 10m"}, "14:30")
	if err != nil {
		t.Fatalf("addEntry: %v", err)
	}
	if e.Key() != "at 14:30:00" || len(entries) != 2 || entries[1] != "at 14:30:00" {
		t.Errorf("Unexpected result %v, %v", entries, e)
	}

	if _, _, err := addEntry(entries, "every 600s"); !errors.Is(err, schedule.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for an equivalent interval, got %v", err)
	}
	if _, _, err := addEntry(entries, "at 99:00"); !errors.Is(err, schedule.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestRemoveEntry(t *testing.T) {
	entries := []string{"at 14:30:00", "every 10m0s"}

	out, err := removeEntry(entries, "14:30")
	if err != nil {
		t.Fatalf("removeEntry: %v", err)
	}
	if len(out) != 1 || out[0] != "every 10m0s" {
		t.Errorf("Unexpected entries %v", out)
	}
	if len(entries) != 2 {
		t.Errorf("Expected the input to be left alone, got %v", entries)
	}

	if _, err := removeEntry(entries, "every 5m"); !errors.Is(err, schedule.ErrUnknownEntry) {
		t.Errorf("Expected ErrUnknownEntry, got %v", err)
	}
}

func TestWindowURL(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 18090}
	if got := windowURL(addr, ""); got != "http://127.0.0.1:18090/" {
		t.Errorf("windowURL() = %q", got)
	}
	if got := windowURL(addr, "a b"); got != "http://127.0.0.1:18090/?token=a+b" {
		t.Errorf("windowURL() with token = %q", got)
	}
}

func testController(t *testing.T) *controller.Controller {
	t.Helper()
	cfg := config.DefaultConfig()
	c, err := newController(cfg, "/data", afero.NewMemMapFs(), nopPointer{})
	if err != nil {
		t.Fatalf("newController: %v", err)
	}
	return c
}

func TestRestoreSchedulesSkipsInvalid(t *testing.T) {
	c := testController(t)
	restoreSchedules(c, []string{"at 08:00", "bogus", "every 1h", "at 08:00:00"})

	got := c.Schedules()
	if len(got) != 2 || got[0] != "at 08:00:00" || got[1] != "every 1h0m0s" {
		t.Errorf("Unexpected schedules %v", got)
	}
}

func TestRegisterHotkeysDrivesController(t *testing.T) {
	c := testController(t)
	hk := hotkey.NewManager()
	registerHotkeys(hk, config.DefaultConfig().Hotkeys, c)

	hk.UpdateState("F9", true)
	hk.UpdateState("F9", false)

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Mode != controller.ModeRecording {
		if time.Now().After(deadline) {
			t.Fatalf("Expected F9 to start recording, mode is %s", c.Snapshot().Mode)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
