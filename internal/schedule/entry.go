// Package schedule decides when a recording should be replayed. Entries
// are a time of day, a repeat interval or a cron expression, and a Trigger
// checks them once per tick.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// MinInterval is the shortest accepted repeat interval
const MinInterval = time.Second

// Kind identifies the variant of an Entry
type Kind string

const (
	KindTimeOfDay Kind = "at"
	KindInterval  Kind = "every"
	KindCron      Kind = "cron"
)

// Entry is one normalised schedule rule. Only the fields for its Kind are set.
type Entry struct {
	Kind Kind

	// KindTimeOfDay
	Hour, Minute, Second int

	// KindInterval
	Every time.Duration

	// KindCron, fields separated by single spaces
	Expr string
}

// Parse reads one entry. Accepted forms:
//
//	at 14:30:00    at 14:30    14:30:00
//	every 10s      every 90    (bare numbers are seconds)
//	cron */5 * * * *
func Parse(text string) (Entry, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Entry{}, fmt.Errorf("%w: empty", ErrInvalidEntry)
	}

	head := strings.ToLower(fields[0])
	rest := fields[1:]
	switch head {
	case string(KindTimeOfDay):
		if len(rest) != 1 {
			return Entry{}, fmt.Errorf("%w: %q: expected at HH:MM[:SS]", ErrInvalidEntry, text)
		}
		return parseTimeOfDay(rest[0])
	case string(KindInterval):
		if len(rest) != 1 {
			return Entry{}, fmt.Errorf("%w: %q: expected every <duration>", ErrInvalidEntry, text)
		}
		return parseInterval(rest[0])
	case string(KindCron):
		return parseCron(rest)
	}

	if len(fields) == 1 && strings.Contains(fields[0], ":") {
		return parseTimeOfDay(fields[0])
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrInvalidEntry, text)
}

func parseTimeOfDay(s string) (Entry, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: time %q: expected HH:MM[:SS]", ErrInvalidEntry, s)
	}
	var vals [3]int
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) > 2 || n < 0 || n > limits[i] {
			return Entry{}, fmt.Errorf("%w: time %q out of range", ErrInvalidEntry, s)
		}
		vals[i] = n
	}
	return Entry{Kind: KindTimeOfDay, Hour: vals[0], Minute: vals[1], Second: vals[2]}, nil
}

// ParseInterval reads a period the way "every" entries do: a Go duration
// or a bare number of seconds, at least MinInterval.
func ParseInterval(text string) (time.Duration, error) {
	e, err := parseInterval(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	return e.Every, nil
}

func parseInterval(s string) (Entry, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		n, nerr := strconv.Atoi(s)
		if nerr != nil {
			return Entry{}, fmt.Errorf("%w: interval %q: %v", ErrInvalidEntry, s, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d < MinInterval {
		return Entry{}, fmt.Errorf("%w: interval %s is shorter than %s", ErrInvalidEntry, d, MinInterval)
	}
	return Entry{Kind: KindInterval, Every: d}, nil
}

func parseCron(fields []string) (Entry, error) {
	expr := strings.Join(fields, " ")
	// gronx also accepts a seconds field; only the classic 5 fields are allowed here
	if len(fields) != 5 || !gronx.IsValid(expr) {
		return Entry{}, fmt.Errorf("%w: cron %q: expected 5-field format (minute hour day-of-month month day-of-week)", ErrInvalidEntry, expr)
	}
	return Entry{Kind: KindCron, Expr: expr}, nil
}

// Every returns an interval entry, validating the duration
func Every(d time.Duration) (Entry, error) {
	if d < MinInterval {
		return Entry{}, fmt.Errorf("%w: interval %s is shorter than %s", ErrInvalidEntry, d, MinInterval)
	}
	return Entry{Kind: KindInterval, Every: d}, nil
}

// Key is the normalised text form. Two entries are the same rule exactly
// when their keys match, and Parse(e.Key()) yields e again.
func (e Entry) Key() string {
	switch e.Kind {
	case KindTimeOfDay:
		return fmt.Sprintf("at %02d:%02d:%02d", e.Hour, e.Minute, e.Second)
	case KindInterval:
		return "every " + e.Every.String()
	case KindCron:
		return "cron " + e.Expr
	}
	return ""
}

func (e Entry) String() string {
	return e.Key()
}

// NormalizeKey maps user text to an entry key. Text that does not parse is
// returned trimmed so lookups of unknown keys still fail cleanly.
func NormalizeKey(text string) string {
	if e, err := Parse(text); err == nil {
		return e.Key()
	}
	return strings.TrimSpace(text)
}

// on returns the entry's time on the calendar day of day, in day's location
func (e Entry) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, e.Hour, e.Minute, e.Second, 0, day.Location())
}
