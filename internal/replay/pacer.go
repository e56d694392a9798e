// Package replay plays a recorded event sequence back through a pointer,
// reconstructing the original delays between events.
package replay

import (
	"fmt"
	"log"
	"time"

	"mousereplay/internal/input"
)

// DefaultPoll bounds how long a stop request can go unnoticed
const DefaultPoll = 50 * time.Millisecond

// Status is the terminal state of a replay
type Status string

const (
	StatusEmpty       Status = "empty"
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
)

// Failure describes one event the pointer rejected
type Failure struct {
	Index int
	Event input.Event
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("event %d (%s): %v", f.Index, f.Event, f.Err)
}

// Outcome summarises a replay. Index is the position reached: the number
// of events applied for Completed, or the index that was about to be
// applied when the replay was interrupted. Applied counts events handed to
// the pointer, including ones it rejected.
type Outcome struct {
	Status    Status
	Index     int
	Total     int
	Applied   int
	Fallbacks int
	Failures  []Failure
}

// Options configure a Pacer. Zero values pick the defaults.
type Options struct {
	// Poll is the longest single sleep between stop checks
	Poll time.Duration

	// Speed divides every delay; 2 plays twice as fast. 0 means 1.
	Speed float64

	// ReleaseHeld releases buttons left pressed by an interrupted run
	ReleaseHeld bool

	// OnProgress is called after each applied event
	OnProgress func(done, total int)

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Pacer replays sequences through a Pointer
type Pacer struct {
	pointer     input.Pointer
	poll        time.Duration
	speed       float64
	releaseHeld bool
	onProgress  func(done, total int)
	now         func() time.Time
	sleep       func(time.Duration)
}

// NewPacer validates opts and returns a pacer
func NewPacer(p input.Pointer, opts Options) (*Pacer, error) {
	if opts.Speed < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpeed, opts.Speed)
	}
	pacer := &Pacer{
		pointer:     p,
		poll:        opts.Poll,
		speed:       opts.Speed,
		releaseHeld: opts.ReleaseHeld,
		onProgress:  opts.OnProgress,
		now:         opts.Now,
		sleep:       opts.Sleep,
	}
	if pacer.poll <= 0 {
		pacer.poll = DefaultPoll
	}
	if pacer.speed == 0 {
		pacer.speed = 1
	}
	if pacer.now == nil {
		pacer.now = time.Now
	}
	if pacer.sleep == nil {
		pacer.sleep = time.Sleep
	}
	return pacer, nil
}

// Replay applies seq in order. Before event i it waits for the gap to
// event i-1, checking shouldContinue at least every Poll; once that
// returns false no further events are applied. A nil shouldContinue
// never interrupts.
func (p *Pacer) Replay(seq []input.Event, shouldContinue func() bool) Outcome {
	out := Outcome{Total: len(seq)}
	if len(seq) == 0 {
		out.Status = StatusEmpty
		return out
	}
	if shouldContinue == nil {
		shouldContinue = func() bool { return true }
	}

	held := make(map[input.Button]bool)
	for i, ev := range seq {
		var gap time.Duration
		if i > 0 {
			gap = p.scale(ev.At - seq[i-1].At)
		}
		if !p.wait(gap, shouldContinue) {
			out.Status = StatusInterrupted
			out.Index = i
			if p.releaseHeld {
				p.release(held)
			}
			return out
		}

		p.apply(i, ev, held, &out)
		out.Applied++
		if p.onProgress != nil {
			p.onProgress(i+1, len(seq))
		}
	}

	out.Status = StatusCompleted
	out.Index = len(seq)
	return out
}

func (p *Pacer) scale(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / p.speed)
}

// wait sleeps for d in slices of at most p.poll. It reports false as soon
// as shouldContinue does.
func (p *Pacer) wait(d time.Duration, shouldContinue func() bool) bool {
	deadline := p.now().Add(d)
	for {
		if !shouldContinue() {
			return false
		}
		remaining := deadline.Sub(p.now())
		if remaining <= 0 {
			return true
		}
		if remaining > p.poll {
			remaining = p.poll
		}
		p.sleep(remaining)
	}
}

func (p *Pacer) apply(i int, ev input.Event, held map[input.Button]bool, out *Outcome) {
	fail := func(err error) {
		out.Failures = append(out.Failures, Failure{Index: i, Event: ev, Err: err})
	}

	switch ev.Kind {
	case input.KindMove:
		if err := p.pointer.MoveTo(ev.X, ev.Y); err != nil {
			fail(err)
		}

	case input.KindDown, input.KindUp:
		b := ev.Button
		if !b.Valid() {
			var ok bool
			if b, ok = input.ParseButton(string(ev.Button)); !ok {
				out.Fallbacks++
				log.Printf("Replay: Unknown button %q at event %d, using %s", ev.Button, i, b)
			}
		}

		moveErr := p.pointer.MoveTo(ev.X, ev.Y)
		if moveErr != nil {
			fail(moveErr)
		}
		if ev.Kind == input.KindDown {
			// Never press somewhere other than the recorded position
			if moveErr != nil {
				return
			}
			if err := p.pointer.Press(b); err != nil {
				fail(err)
				return
			}
			held[b] = true
			return
		}
		// Releases go through even after a failed move so no button sticks
		if err := p.pointer.Release(b); err != nil {
			fail(err)
		}
		delete(held, b)

	default:
		fail(fmt.Errorf("%w %q", ErrUnknownKind, ev.Kind))
	}
}

func (p *Pacer) release(held map[input.Button]bool) {
	for b := range held {
		if err := p.pointer.Release(b); err != nil {
			log.Printf("Replay: Failed to release %s after interruption: %v", b, err)
		}
	}
}
