package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Hotkeys.ToggleRecording != "F9" || cfg.Hotkeys.ToggleAuto != "F10" {
		t.Errorf("Unexpected default hotkeys %+v", cfg.Hotkeys)
	}
	if cfg.Replay.AutoInterval.Std() != 10*time.Second {
		t.Errorf("Expected 10s auto interval, got %s", cfg.Replay.AutoInterval.Std())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewManagerAt(afero.NewMemMapFs(), "/cfg/config.json")
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Replay.RecordingFile != "mouse_log.json" {
		t.Errorf("Expected default recording file, got %q", m.Get().Replay.RecordingFile)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerAt(fs, "/cfg/config.json")

	cfg := DefaultConfig()
	cfg.Replay.AutoInterval = Duration(90 * time.Second)
	cfg.Schedule.Entries = []string{"at 14:30:00", "cron 0 9 * * 1-5"}
	if err := m.Set(cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := afero.ReadFile(fs, "/cfg/config.json")
	if !strings.Contains(string(data), `"auto_replay_interval": "1m30s"`) {
		t.Errorf("Expected duration string in file, got:\n%s", data)
	}

	other := NewManagerAt(fs, "/cfg/config.json")
	if err := other.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := other.Get()
	if got.Replay.AutoInterval.Std() != 90*time.Second {
		t.Errorf("Expected 1m30s, got %s", got.Replay.AutoInterval.Std())
	}
	if len(got.Schedule.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %v", got.Schedule.Entries)
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/c.json", []byte(`{"replay":{"auto_replay_interval":15}}`), 0644)

	m := NewManagerAt(fs, "/c.json")
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get().Replay.AutoInterval.Std(); got != 15*time.Second {
		t.Errorf("Expected 15s, got %s", got)
	}
	// Fields missing from the file keep their defaults
	if m.Get().Hotkeys.ToggleRecording != "F9" {
		t.Error("Expected default hotkey to survive a partial file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"short interval": `{"replay":{"auto_replay_interval":"100ms"}}`,
		"bad entry":      `{"schedule":{"entries":["whenever"]}}`,
		"bad tolerance":  `{"schedule":{"tick_interval":"1s","clock_jump_tolerance":"1s"}}`,
		"bad duration":   `{"schedule":{"tick_interval":"soon"}}`,
		"not json":       `{`,
	}
	for name, body := range tests {
		fs := afero.NewMemMapFs()
		afero.WriteFile(fs, "/c.json", []byte(body), 0644)
		m := NewManagerAt(fs, "/c.json")
		if err := m.Load(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOUSEREPLAY_AUTO_REPLAY_INTERVAL", "30s")
	t.Setenv("MOUSEREPLAY_API_ENABLED", "false")
	t.Setenv("MOUSEREPLAY_RECORDING_FILE", "/tmp/other.json")

	m := NewManagerAt(afero.NewMemMapFs(), "/c.json")
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Replay.AutoInterval.Std() != 30*time.Second {
		t.Errorf("Expected env interval, got %s", cfg.Replay.AutoInterval.Std())
	}
	if cfg.API.Enabled {
		t.Error("Expected API disabled by env")
	}
	if cfg.RecordingPath("/cfg") != "/tmp/other.json" {
		t.Errorf("Expected absolute recording path, got %s", cfg.RecordingPath("/cfg"))
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("MOUSEREPLAY_TICK_INTERVAL", "fast")
	m := NewManagerAt(afero.NewMemMapFs(), "/c.json")
	if err := m.Load(); err == nil {
		t.Error("Expected error for invalid env duration")
	}
}

func TestSetSchedulesPersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerAt(fs, "/cfg/config.json")
	changed := 0
	m.RegisterChangeCallback(func() { changed++ })

	if err := m.SetSchedules([]string{"every 5m0s"}); err != nil {
		t.Fatalf("SetSchedules: %v", err)
	}
	other := NewManagerAt(fs, "/cfg/config.json")
	other.Load()
	if got := other.Get().Schedule.Entries; len(got) != 1 || got[0] != "every 5m0s" {
		t.Errorf("Unexpected persisted entries %v", got)
	}

	m.Set(DefaultConfig())
	if changed != 1 {
		t.Errorf("Expected change callback once, got %d", changed)
	}
}

func TestRecordingPathRelative(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.RecordingPath("/home/u/.config/mousereplay"); got != "/home/u/.config/mousereplay/mouse_log.json" {
		t.Errorf("Unexpected path %s", got)
	}
}

func TestSetAutoIntervalSaves(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := NewManagerAt(fs, "/cfg/config.json")
	if err := m.SetAutoInterval(45 * time.Second); err != nil {
		t.Fatalf("SetAutoInterval: %v", err)
	}

	reloaded := NewManagerAt(fs, "/cfg/config.json")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := reloaded.Get().Replay.AutoInterval.Std(); got != 45*time.Second {
		t.Errorf("Expected 45s after reload, got %s", got)
	}
}
