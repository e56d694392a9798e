package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"mousereplay/internal/input"
)

func sampleEvents() []input.Event {
	return []input.Event{
		input.Move(100, 200, 0),
		input.Move(110, 205, 16*time.Millisecond),
		input.Click(110, 205, input.ButtonLeft, true, 250*time.Millisecond),
		input.Click(110, 205, input.ButtonLeft, false, 320*time.Millisecond),
		input.Click(-40, 900, input.ButtonRight, true, time.Second+123456789),
		input.Click(-40, 900, input.ButtonRight, false, 2*time.Second),
		input.Move(0, 0, 90*time.Minute),
	}
}

func TestAppendRequiresRecording(t *testing.T) {
	s := New(afero.NewMemMapFs())

	if s.Append(input.Move(1, 1, 0)) {
		t.Fatal("Expected append before Begin to be ignored")
	}
	if s.Len() != 0 {
		t.Fatalf("Expected empty store, got %d events", s.Len())
	}

	s.Begin()
	if !s.Append(input.Move(1, 1, 0)) {
		t.Fatal("Expected append while recording to succeed")
	}
	frozen := s.End()
	if len(frozen) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(frozen))
	}

	if s.Append(input.Move(2, 2, time.Second)) {
		t.Fatal("Expected append after End to be ignored")
	}
}

func TestBeginClearsPreviousRecording(t *testing.T) {
	s := New(afero.NewMemMapFs())
	s.Begin()
	s.Append(input.Move(1, 1, 0))
	s.End()

	s.Begin()
	if s.Len() != 0 {
		t.Fatalf("Expected Begin to clear, got %d events", s.Len())
	}
}

func TestAppendClampsTimestamps(t *testing.T) {
	s := New(nil)
	s.Begin()
	s.Append(input.Move(1, 1, time.Second))
	s.Append(input.Move(2, 2, 500*time.Millisecond))

	events := s.End()
	if events[1].At != time.Second {
		t.Errorf("Expected clamped timestamp 1s, got %s", events[1].At)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)
	s.Begin()
	for _, ev := range sampleEvents() {
		s.Append(ev)
	}
	s.End()

	if err := s.Save("/data/mouse_log.json"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load("/data/mouse_log.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, sampleEvents()) {
		t.Errorf("Round trip mismatch:\n got %v\nwant %v", got, sampleEvents())
	}

	if exists, _ := afero.Exists(fs, "/data/mouse_log.json.tmp"); exists {
		t.Error("Expected temp file to be renamed away")
	}
}

func TestSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Save(fs, "/rec.json", sampleEvents()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(fs, "/rec.json", sampleEvents()[:1]); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(fs, "/rec.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected overwritten file with 1 event, got %d", len(got))
	}
}

func TestLoadEmptyIsNotAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Save(fs, "/empty.json", nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(fs, "/empty.json")
	if err != nil {
		t.Fatalf("Expected empty sequence, got error %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected non-nil empty slice, got %#v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/blank.json":    "   ",
		"/garbage.json":  "{not json",
		"/version.json":  `{"version":7,"events":[]}`,
		"/type.json":     `{"version":1,"events":[{"type":"scroll","t":0,"x":1,"y":1}]}`,
		"/pressed.json":  `{"version":1,"events":[{"type":"click","t":0,"x":1,"y":1,"button":"left"}]}`,
		"/backward.json": `{"version":1,"events":[{"type":"move","t":2,"x":1,"y":1},{"type":"move","t":1,"x":1,"y":1}]}`,
		"/negative.json": `{"version":1,"events":[{"type":"move","t":-1,"x":1,"y":1}]}`,
	}
	for name, body := range files {
		afero.WriteFile(fs, name, []byte(body), 0644)
	}

	if _, err := Load(fs, "/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	for name := range files {
		_, err := Load(fs, name)
		if !errors.Is(err, ErrParse) {
			t.Errorf("%s: expected ErrParse, got %v", name, err)
		}
		if errors.Is(err, ErrNotFound) {
			t.Errorf("%s: parse error must not look like not-found", name)
		}
	}
}

func TestLoadKeepsUnknownButton(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/b.json", []byte(`{"version":1,"events":[{"type":"click","t":0,"x":3,"y":4,"button":"x9","pressed":true}]}`), 0644)

	got, err := Load(fs, "/b.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Button != "x9" || got[0].Kind != input.KindDown {
		t.Errorf("Expected raw x9 press, got %s", got[0])
	}
}

func TestLoadLegacyFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `[
		["move", 1700000000.0, 10, 20],
		["click", 1700000000.5, 10, 20, "Button.left", true],
		["click", 1700000000.25, 10, 20, "Button.left", false],
		["click", 1700000001.0, 30, 40, "Button.right", true]
	]`
	afero.WriteFile(fs, "/mouse_log.json", []byte(legacy), 0644)

	got, err := Load(fs, "/mouse_log.json")
	if err != nil {
		t.Fatalf("Load legacy: %v", err)
	}
	want := []input.Event{
		input.Move(10, 20, 0),
		input.Click(10, 20, input.ButtonLeft, true, 500*time.Millisecond),
		input.Click(10, 20, input.ButtonLeft, false, 500*time.Millisecond),
		input.Click(30, 40, input.ButtonRight, true, time.Second),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Legacy mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestLoadLegacyShortRow(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/short.json", []byte(`[["click", 1.0, 2, 3]]`), 0644)

	_, err := Load(fs, "/short.json")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("Expected ErrParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "/short.json") {
		t.Errorf("Expected path in error, got %v", err)
	}
}
