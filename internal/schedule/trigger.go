package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

const (
	// DefaultTick is the period of the check loop
	DefaultTick = time.Second

	// DefaultTolerance is how far the wall clock may drift from the tick
	// period between two checks before it counts as a clock change
	DefaultTolerance = time.Hour
)

const dateLayout = "2006-01-02"

// NoticeKind classifies a Notice
type NoticeKind string

const (
	NoticeClockJump NoticeKind = "clock_jump"
	NoticeDropped   NoticeKind = "dropped"
)

// Notice reports something the host should surface to the user
type Notice struct {
	Kind  NoticeKind
	At    time.Time
	Delta time.Duration // wall-clock step between ticks, for clock jumps
	Entry string        // entry key, for dropped firings
}

func (n Notice) String() string {
	switch n.Kind {
	case NoticeClockJump:
		return fmt.Sprintf("clock change detected (%s between checks)", n.Delta)
	case NoticeDropped:
		return fmt.Sprintf("skipped %s: a replay is already running", n.Entry)
	}
	return string(n.Kind)
}

// FireFunc starts a replay for entry. It returns false when it could not,
// typically because a replay is already running.
type FireFunc func(e Entry) bool

// Options configure a Trigger. Zero values pick the defaults.
type Options struct {
	Tick      time.Duration
	Tolerance time.Duration
	Now       func() time.Time
	OnNotice  func(Notice)
}

type entryState struct {
	entry     Entry
	firedOn   string    // local date a time-of-day entry last fired
	lastFired time.Time // interval entries
	next      time.Time // cron entries
}

// Trigger owns the set of schedule entries and fires them from a tick loop
type Trigger struct {
	mu        sync.Mutex
	fire      FireFunc
	tick      time.Duration
	tolerance time.Duration
	now       func() time.Time
	onNotice  func(Notice)

	entries map[string]*entryState
	order   []string
	prev    time.Time
	ticked  bool
}

// NewTrigger creates a trigger that calls fire for each due entry
func NewTrigger(fire FireFunc, opts Options) *Trigger {
	t := &Trigger{
		fire:      fire,
		tick:      opts.Tick,
		tolerance: opts.Tolerance,
		now:       opts.Now,
		onNotice:  opts.OnNotice,
		entries:   make(map[string]*entryState),
	}
	if t.tick <= 0 {
		t.tick = DefaultTick
	}
	if t.tolerance <= 0 {
		t.tolerance = DefaultTolerance
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Add schedules e. Interval entries count their first period from now.
func (t *Trigger) Add(e Entry) error {
	key := e.Key()
	if key == "" {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}

	now := t.now()
	st := &entryState{entry: e}
	switch e.Kind {
	case KindInterval:
		st.lastFired = now
	case KindCron:
		next, err := gronx.NextTickAfter(e.Expr, now, false)
		if err != nil {
			return fmt.Errorf("%w: cron %q: %v", ErrInvalidEntry, e.Expr, err)
		}
		st.next = next
	}

	t.entries[key] = st
	t.order = append(t.order, key)
	log.Printf("Trigger: Added %s", key)
	return nil
}

// Remove unschedules the entry with the given key. Unnormalised text is
// accepted.
func (t *Trigger) Remove(key string) error {
	key = NormalizeKey(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, key)
	}
	delete(t.entries, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	log.Printf("Trigger: Removed %s", key)
	return nil
}

// Has reports whether an entry with the given key is scheduled
func (t *Trigger) Has(key string) bool {
	key = NormalizeKey(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[key]
	return ok
}

// Entries returns the scheduled entries in the order they were added
func (t *Trigger) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.entries[k].entry)
	}
	return out
}

// Next returns when a cron entry fires next. ok is false for other kinds.
func (t *Trigger) Next(key string) (time.Time, bool) {
	key = NormalizeKey(key)
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.entries[key]
	if !ok || st.entry.Kind != KindCron {
		return time.Time{}, false
	}
	return st.next, true
}

// Run checks the schedule every tick until ctx is done
func (t *Trigger) Run(ctx context.Context) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	log.Printf("Trigger: Started (tick %s, tolerance %s)", t.tick, t.tolerance)
	for {
		select {
		case <-ctx.Done():
			log.Println("Trigger: Stopped")
			return
		case <-ticker.C:
			t.Tick(t.now())
		}
	}
}

// Tick evaluates every entry against now and fires the due ones. It
// returns the entries whose firing was accepted.
func (t *Trigger) Tick(now time.Time) []Entry {
	due, notice := t.collect(now)
	if notice != nil {
		log.Printf("Trigger: %s", notice)
		t.notify(*notice)
	}

	var fired []Entry
	for _, e := range due {
		if t.safeFire(e) {
			log.Printf("Trigger: Fired %s", e.Key())
			fired = append(fired, e)
			continue
		}
		log.Printf("Trigger: Dropped %s, replay busy", e.Key())
		t.notify(Notice{Kind: NoticeDropped, At: now, Entry: e.Key()})
	}
	return fired
}

// collect advances all trigger state to now and returns the entries due.
// Firing state is updated here, before fire runs, so a slow or rejected
// replay never leads to a second firing of the same window.
func (t *Trigger) collect(now time.Time) ([]Entry, *Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, first := t.prev, !t.ticked
	t.prev, t.ticked = now, true

	var notice *Notice
	jumped := false
	if !first {
		// Round(0) drops the monotonic reading so the wall clocks are compared
		delta := now.Round(0).Sub(prev.Round(0))
		if drift := delta - t.tick; drift > t.tolerance || drift < -t.tolerance {
			jumped = true
			notice = &Notice{Kind: NoticeClockJump, At: now, Delta: delta}
			for _, st := range t.entries {
				st.firedOn = ""
				st.lastFired = now
				if st.entry.Kind == KindCron {
					st.next = t.nextCron(st.entry, now)
				}
			}
		}
	}

	var due []Entry
	for _, key := range t.order {
		st := t.entries[key]
		switch st.entry.Kind {
		case KindTimeOfDay:
			if at, ok := t.timeOfDayDue(st, prev, now, first || jumped); ok {
				st.firedOn = at.Format(dateLayout)
				due = append(due, st.entry)
			}

		case KindInterval:
			if now.Before(st.lastFired) {
				st.lastFired = now
			}
			if now.Sub(st.lastFired) >= st.entry.Every {
				st.lastFired = now
				due = append(due, st.entry)
			}

		case KindCron:
			if !st.next.IsZero() && !now.Before(st.next) {
				st.next = t.nextCron(st.entry, now)
				due = append(due, st.entry)
			}
		}
	}
	return due, notice
}

// timeOfDayDue reports whether the entry's time falls in (prev, now] on
// prev's or now's calendar day. Without a usable prev the window is the
// current second only.
func (t *Trigger) timeOfDayDue(st *entryState, prev, now time.Time, fresh bool) (time.Time, bool) {
	e := st.entry
	if fresh {
		if now.Hour() != e.Hour || now.Minute() != e.Minute || now.Second() != e.Second {
			return time.Time{}, false
		}
		at := e.on(now)
		return at, st.firedOn != at.Format(dateLayout)
	}

	if !now.After(prev) {
		return time.Time{}, false
	}
	for _, day := range []time.Time{prev.In(now.Location()), now} {
		at := e.on(day)
		if at.After(prev) && !at.After(now) && st.firedOn != at.Format(dateLayout) {
			return at, true
		}
	}
	return time.Time{}, false
}

func (t *Trigger) nextCron(e Entry, from time.Time) time.Time {
	next, err := gronx.NextTickAfter(e.Expr, from, false)
	if err != nil {
		log.Printf("Trigger: No next run for %s: %v", e.Key(), err)
		return time.Time{}
	}
	return next
}

func (t *Trigger) safeFire(e Entry) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Trigger: Recovered from panic firing %s: %v", e.Key(), r)
			ok = false
		}
	}()
	if t.fire == nil {
		return false
	}
	return t.fire(e)
}

func (t *Trigger) notify(n Notice) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Trigger: Recovered from panic in notice handler: %v", r)
		}
	}()
	if t.onNotice != nil {
		t.onNotice(n)
	}
}
