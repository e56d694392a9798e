package replay

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mousereplay/internal/input"
)

// simClock is a fake monotonic clock advanced only by Sleep
type simClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newSimClock() *simClock {
	return &simClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *simClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

type call struct {
	op  string
	x   int
	y   int
	btn input.Button
	at  time.Time
}

// recordingPointer logs every call and can be told to reject positions
type recordingPointer struct {
	clock  func() time.Time
	calls  []call
	reject func(x, y int) bool
}

func (p *recordingPointer) stamp() time.Time {
	if p.clock == nil {
		return time.Time{}
	}
	return p.clock()
}

func (p *recordingPointer) MoveTo(x, y int) error {
	p.calls = append(p.calls, call{op: "move", x: x, y: y, at: p.stamp()})
	if p.reject != nil && p.reject(x, y) {
		return fmt.Errorf("position (%d,%d) out of bounds", x, y)
	}
	return nil
}

func (p *recordingPointer) Press(b input.Button) error {
	p.calls = append(p.calls, call{op: "press", btn: b, at: p.stamp()})
	return nil
}

func (p *recordingPointer) Release(b input.Button) error {
	p.calls = append(p.calls, call{op: "release", btn: b, at: p.stamp()})
	return nil
}

func newTestPacer(t *testing.T, p input.Pointer, clock *simClock, opts Options) *Pacer {
	t.Helper()
	opts.Now = clock.Now
	opts.Sleep = clock.Sleep
	pacer, err := NewPacer(p, opts)
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}
	return pacer
}

func TestReplayEmpty(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{}
	pacer := newTestPacer(t, ptr, clock, Options{})

	out := pacer.Replay(nil, func() bool { return true })
	if out.Status != StatusEmpty {
		t.Errorf("Expected empty outcome, got %s", out.Status)
	}
	if len(ptr.calls) != 0 {
		t.Errorf("Expected zero pointer calls, got %d", len(ptr.calls))
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("Expected no sleeping, got %v", clock.sleeps)
	}
}

func TestReplayPacing(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{clock: clock.Now}
	pacer := newTestPacer(t, ptr, clock, Options{})

	seq := []input.Event{
		input.Move(1, 1, 0),
		input.Move(2, 2, time.Second),
		input.Move(3, 3, 1500*time.Millisecond),
	}
	out := pacer.Replay(seq, nil)

	if out.Status != StatusCompleted || out.Index != 3 || out.Applied != 3 {
		t.Fatalf("Unexpected outcome %+v", out)
	}
	if len(ptr.calls) != 3 {
		t.Fatalf("Expected 3 calls, got %d", len(ptr.calls))
	}
	gap1 := ptr.calls[1].at.Sub(ptr.calls[0].at)
	gap2 := ptr.calls[2].at.Sub(ptr.calls[1].at)
	if gap1 != time.Second {
		t.Errorf("Expected 1s gap, got %s", gap1)
	}
	if gap2 != 500*time.Millisecond {
		t.Errorf("Expected 500ms gap, got %s", gap2)
	}
	for _, d := range clock.sleeps {
		if d > DefaultPoll {
			t.Errorf("Sleep of %s exceeds poll interval", d)
		}
	}
}

func TestReplayPacingRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("uses real time")
	}
	ptr := &recordingPointer{clock: time.Now}
	pacer, err := NewPacer(ptr, Options{})
	if err != nil {
		t.Fatalf("NewPacer: %v", err)
	}

	seq := []input.Event{
		input.Move(1, 1, 0),
		input.Move(2, 2, time.Second),
		input.Move(3, 3, 1500*time.Millisecond),
	}
	pacer.Replay(seq, nil)

	const tolerance = 50 * time.Millisecond
	check := func(name string, got, want time.Duration) {
		if got < want-tolerance || got > want+4*tolerance {
			t.Errorf("%s gap %s not within tolerance of %s", name, got, want)
		}
	}
	check("first", ptr.calls[1].at.Sub(ptr.calls[0].at), time.Second)
	check("second", ptr.calls[2].at.Sub(ptr.calls[1].at), 500*time.Millisecond)
}

func TestReplayNegativeGapClamped(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{clock: clock.Now}
	pacer := newTestPacer(t, ptr, clock, Options{})

	seq := []input.Event{
		input.Move(1, 1, time.Second),
		input.Move(2, 2, 0),
	}
	out := pacer.Replay(seq, nil)
	if out.Status != StatusCompleted {
		t.Fatalf("Expected completion, got %s", out.Status)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("Expected no waiting for a negative gap, got %v", clock.sleeps)
	}
}

func TestReplayInterruptedAfterFirstEvent(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{clock: clock.Now}
	pacer := newTestPacer(t, ptr, clock, Options{})

	seq := []input.Event{
		input.Move(1, 1, 0),
		input.Move(2, 2, time.Second),
		input.Move(3, 3, 2*time.Second),
	}
	// True until the first event has reached the pointer
	shouldContinue := func() bool { return len(ptr.calls) == 0 }

	out := pacer.Replay(seq, shouldContinue)
	if out.Status != StatusInterrupted {
		t.Fatalf("Expected interrupted, got %s", out.Status)
	}
	if out.Index != 1 {
		t.Errorf("Expected index 1, got %d", out.Index)
	}
	if len(ptr.calls) != 1 {
		t.Errorf("Expected no pointer calls after interruption, got %d total", len(ptr.calls))
	}
}

func TestReplayStopHonoredWithinPoll(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{clock: clock.Now}
	pacer := newTestPacer(t, ptr, clock, Options{Poll: 20 * time.Millisecond})

	start := clock.Now()
	seq := []input.Event{
		input.Move(1, 1, 0),
		input.Move(2, 2, time.Hour),
	}
	stopAt := start.Add(300 * time.Millisecond)
	out := pacer.Replay(seq, func() bool { return clock.Now().Before(stopAt) })

	if out.Status != StatusInterrupted {
		t.Fatalf("Expected interrupted, got %s", out.Status)
	}
	waited := clock.Now().Sub(stopAt)
	if waited < 0 || waited > 20*time.Millisecond {
		t.Errorf("Stop noticed %s after request, want within one poll", waited)
	}
}

func TestReplayPointerErrorsDoNotAbort(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{
		clock:  clock.Now,
		reject: func(x, y int) bool { return x < 0 },
	}
	pacer := newTestPacer(t, ptr, clock, Options{})

	seq := []input.Event{
		input.Move(1, 1, 0),
		input.Move(-5000, 1, 10*time.Millisecond),
		input.Click(-5000, 1, input.ButtonLeft, true, 20*time.Millisecond),
		input.Click(-5000, 1, input.ButtonLeft, false, 30*time.Millisecond),
		input.Move(4, 4, 40*time.Millisecond),
	}
	out := pacer.Replay(seq, nil)

	if out.Status != StatusCompleted {
		t.Fatalf("Expected completion despite errors, got %s", out.Status)
	}
	if len(out.Failures) != 3 {
		t.Fatalf("Expected 3 failures, got %d: %v", len(out.Failures), out.Failures)
	}
	for _, f := range out.Failures {
		if f.Index < 1 || f.Index > 3 {
			t.Errorf("Unexpected failure index %d", f.Index)
		}
	}

	var presses, releases int
	for _, c := range ptr.calls {
		switch c.op {
		case "press":
			presses++
		case "release":
			releases++
		}
	}
	if presses != 0 {
		t.Errorf("Expected press at rejected position to be skipped, got %d", presses)
	}
	if releases != 1 {
		t.Errorf("Expected release to go through, got %d", releases)
	}
	if last := ptr.calls[len(ptr.calls)-1]; last.op != "move" || last.x != 4 {
		t.Errorf("Expected final move to be applied, got %+v", last)
	}
}

func TestReplayClickPositionsBeforeButton(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{}
	pacer := newTestPacer(t, ptr, clock, Options{})

	pacer.Replay([]input.Event{
		input.Click(7, 8, input.ButtonRight, true, 0),
		input.Click(7, 8, input.ButtonRight, false, 0),
	}, nil)

	want := []call{
		{op: "move", x: 7, y: 8},
		{op: "press", btn: input.ButtonRight},
		{op: "move", x: 7, y: 8},
		{op: "release", btn: input.ButtonRight},
	}
	if len(ptr.calls) != len(want) {
		t.Fatalf("Expected %d calls, got %d", len(want), len(ptr.calls))
	}
	for i := range want {
		if ptr.calls[i] != want[i] {
			t.Errorf("Call %d: got %+v, want %+v", i, ptr.calls[i], want[i])
		}
	}
}

func TestReplayUnknownButtonFallsBack(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{}
	pacer := newTestPacer(t, ptr, clock, Options{})

	out := pacer.Replay([]input.Event{
		input.Click(1, 1, input.Button("os.system('x')"), true, 0),
		input.Click(1, 1, input.Button("Button.right"), false, 0),
	}, nil)

	if out.Fallbacks != 1 {
		t.Errorf("Expected 1 fallback, got %d", out.Fallbacks)
	}
	if len(out.Failures) != 0 {
		t.Errorf("Expected fallback not to count as failure, got %v", out.Failures)
	}
	if ptr.calls[1].btn != input.ButtonLeft {
		t.Errorf("Expected unknown button to press left, got %s", ptr.calls[1].btn)
	}
	if ptr.calls[3].btn != input.ButtonRight {
		t.Errorf("Expected legacy name to resolve to right, got %s", ptr.calls[3].btn)
	}
}

func TestReplayReleasesHeldOnInterrupt(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{}
	pacer := newTestPacer(t, ptr, clock, Options{ReleaseHeld: true})

	seq := []input.Event{
		input.Click(1, 1, input.ButtonLeft, true, 0),
		input.Move(2, 2, time.Second),
	}
	out := pacer.Replay(seq, func() bool { return len(ptr.calls) == 0 })

	if out.Status != StatusInterrupted {
		t.Fatalf("Expected interrupted, got %s", out.Status)
	}
	last := ptr.calls[len(ptr.calls)-1]
	if last.op != "release" || last.btn != input.ButtonLeft {
		t.Errorf("Expected held left button released, got %+v", last)
	}
}

func TestReplaySpeedAndProgress(t *testing.T) {
	clock := newSimClock()
	ptr := &recordingPointer{clock: clock.Now}
	var progress []int
	pacer := newTestPacer(t, ptr, clock, Options{
		Speed:      2,
		OnProgress: func(done, total int) { progress = append(progress, done) },
	})

	start := clock.Now()
	pacer.Replay([]input.Event{
		input.Move(1, 1, 0),
		input.Move(1, 1, 2*time.Second),
	}, nil)

	if got := clock.Now().Sub(start); got != time.Second {
		t.Errorf("Expected 1s at double speed, got %s", got)
	}
	if len(progress) != 2 || progress[1] != 2 {
		t.Errorf("Unexpected progress reports %v", progress)
	}
}

func TestNewPacerRejectsNegativeSpeed(t *testing.T) {
	_, err := NewPacer(&recordingPointer{}, Options{Speed: -1})
	if !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("Expected ErrInvalidSpeed, got %v", err)
	}
}
