package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"mousereplay/internal/input"
)

// FormatVersion is written into every saved recording
const FormatVersion = 1

type fileDoc struct {
	Version int      `json:"version"`
	Events  []record `json:"events"`
}

// record is the persisted form of one event. Presses and releases share
// the "click" type and are told apart by Pressed.
type record struct {
	Type    string  `json:"type"`
	T       float64 `json:"t"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Button  string  `json:"button,omitempty"`
	Pressed *bool   `json:"pressed,omitempty"`
}

func encode(events []input.Event) ([]byte, error) {
	doc := fileDoc{Version: FormatVersion, Events: make([]record, 0, len(events))}
	for _, ev := range events {
		rec := record{T: toSeconds(ev.At), X: ev.X, Y: ev.Y}
		switch ev.Kind {
		case input.KindMove:
			rec.Type = "move"
		case input.KindDown, input.KindUp:
			pressed := ev.Kind == input.KindDown
			rec.Type = "click"
			rec.Button = string(ev.Button)
			rec.Pressed = &pressed
		default:
			return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
		}
		doc.Events = append(doc.Events, rec)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func decode(data []byte) ([]input.Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrParse)
	}
	if trimmed[0] == '[' {
		return decodeLegacy(trimmed)
	}

	var doc fileDoc
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrParse, doc.Version)
	}

	events := make([]input.Event, 0, len(doc.Events))
	var last time.Duration
	for i, rec := range doc.Events {
		if math.IsNaN(rec.T) || math.IsInf(rec.T, 0) || rec.T < 0 {
			return nil, fmt.Errorf("%w: event %d has invalid timestamp", ErrParse, i)
		}
		at := fromSeconds(rec.T)
		if at < last {
			return nil, fmt.Errorf("%w: event %d goes back in time", ErrParse, i)
		}
		last = at

		switch rec.Type {
		case "move":
			events = append(events, input.Move(rec.X, rec.Y, at))
		case "click":
			if rec.Pressed == nil {
				return nil, fmt.Errorf("%w: click %d has no pressed flag", ErrParse, i)
			}
			// Unknown buttons are kept as stored; playback applies the fallback.
			events = append(events, input.Click(rec.X, rec.Y, input.Button(rec.Button), *rec.Pressed, at))
		default:
			return nil, fmt.Errorf("%w: event %d has unknown type %q", ErrParse, i, rec.Type)
		}
	}
	return events, nil
}

// decodeLegacy reads the tuple format of older recordings:
//
//	["move", ts, x, y]
//	["click", ts, x, y, "Button.left", true]
//
// ts is an absolute wall-clock time and gets rebased onto the first event.
// Wall clocks can step backwards mid-recording, so offsets are clamped
// rather than rejected.
func decodeLegacy(data []byte) ([]input.Event, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	events := make([]input.Event, 0, len(rows))
	var base float64
	var last time.Duration
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("%w: legacy row %d too short", ErrParse, i)
		}
		var kind string
		var ts, x, y float64
		if err := unmarshalAll(row[:4], &kind, &ts, &x, &y); err != nil {
			return nil, fmt.Errorf("%w: legacy row %d: %v", ErrParse, i, err)
		}
		if i == 0 {
			base = ts
		}
		at := fromSeconds(ts - base)
		if at < last {
			at = last
		}
		last = at

		switch kind {
		case "move":
			events = append(events, input.Move(int(x), int(y), at))
		case "click":
			if len(row) < 6 {
				return nil, fmt.Errorf("%w: legacy click %d too short", ErrParse, i)
			}
			var name string
			var pressed bool
			if err := unmarshalAll(row[4:6], &name, &pressed); err != nil {
				return nil, fmt.Errorf("%w: legacy click %d: %v", ErrParse, i, err)
			}
			b, ok := input.ParseButton(name)
			if !ok {
				b = input.Button(name)
			}
			events = append(events, input.Click(int(x), int(y), b, pressed, at))
		default:
			return nil, fmt.Errorf("%w: legacy row %d has unknown type %q", ErrParse, i, kind)
		}
	}
	return events, nil
}

func unmarshalAll(raw []json.RawMessage, dst ...interface{}) error {
	for i := range dst {
		if err := json.Unmarshal(raw[i], dst[i]); err != nil {
			return err
		}
	}
	return nil
}

func toSeconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
