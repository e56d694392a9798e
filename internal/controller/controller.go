// Package controller owns the record/replay mode and exposes the
// operations the tray, hotkeys and HTTP API call.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"mousereplay/internal/capture"
	"mousereplay/internal/input"
	"mousereplay/internal/replay"
	"mousereplay/internal/schedule"
	"mousereplay/internal/store"
)

// DefaultAutoInterval is the auto-replay period when none is configured
const DefaultAutoInterval = 10 * time.Second

// Options configure a Controller
type Options struct {
	// RecordingFile is where recordings are saved and replays are loaded from
	RecordingFile string

	// Fs is the filesystem holding RecordingFile; nil means the OS one
	Fs afero.Fs

	Pointer input.Pointer

	// AutoInterval is the period ToggleAutoReplay schedules
	AutoInterval time.Duration

	Replay   replay.Options
	Schedule schedule.Options

	Now func() time.Time
}

// Controller is the single owner of the mode. Recording and replaying
// never overlap; a conflicting request fails with ErrBusy.
type Controller struct {
	mu      sync.Mutex
	mode    Mode
	message string
	last    *ReplayResult

	path         string
	fs           afero.Fs
	store        *store.Store
	sink         *capture.Sink
	pacer        *replay.Pacer
	trigger      *schedule.Trigger
	now          func() time.Time
	autoInterval time.Duration
	auto         bool
	autoOwned    bool // the auto entry was added by ToggleAutoReplay

	baseCtx  context.Context
	stop     chan struct{}
	stopping bool
	done     chan struct{}

	subs      map[chan Update]struct{}
	onChanged         func(schedules []string)
	onIntervalChanged func(d time.Duration)
}

// New creates an idle controller
func New(opts Options) (*Controller, error) {
	if opts.RecordingFile == "" {
		return nil, errors.New("controller: recording file is required")
	}
	if opts.Pointer == nil {
		return nil, errors.New("controller: pointer is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AutoInterval == 0 {
		opts.AutoInterval = DefaultAutoInterval
	}
	if opts.AutoInterval < schedule.MinInterval {
		return nil, fmt.Errorf("controller: auto replay interval %s is shorter than %s", opts.AutoInterval, schedule.MinInterval)
	}

	// Buttons held when a replay is stopped would otherwise stay down
	opts.Replay.ReleaseHeld = true
	pacer, err := replay.NewPacer(opts.Pointer, opts.Replay)
	if err != nil {
		return nil, err
	}

	st := store.New(opts.Fs)
	c := &Controller{
		mode:         ModeIdle,
		path:         opts.RecordingFile,
		fs:           opts.Fs,
		store:        st,
		sink:         capture.NewSink(st),
		pacer:        pacer,
		now:          opts.Now,
		autoInterval: opts.AutoInterval,
		baseCtx:      context.Background(),
		subs:         make(map[chan Update]struct{}),
	}

	schedOpts := opts.Schedule
	if schedOpts.Now == nil {
		schedOpts.Now = opts.Now
	}
	userNotice := schedOpts.OnNotice
	schedOpts.OnNotice = func(n schedule.Notice) {
		c.publish(UpdateNotice, n.String())
		if userNotice != nil {
			userNotice(n)
		}
	}
	c.trigger = schedule.NewTrigger(c.fire, schedOpts)
	return c, nil
}

// Sink is the input handler to attach to a hook
func (c *Controller) Sink() *capture.Sink {
	return c.sink
}

// OnSchedulesChanged registers fn to receive the user schedule set after
// every change. The auto-replay entry is not included.
func (c *Controller) OnSchedulesChanged(fn func(schedules []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChanged = fn
}

// OnAutoIntervalChanged registers fn to receive the auto-replay period
// after SetAutoInterval changes it
func (c *Controller) OnAutoIntervalChanged(fn func(d time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onIntervalChanged = fn
}

// Run drives the schedule until ctx is done, then stops any replay
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	c.trigger.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.StopReplay(shutdown); err != nil && !errors.Is(err, ErrIdle) {
		c.publish(UpdateStatus, fmt.Sprintf("Replay did not stop cleanly: %v", err))
	}
}

// StartRecording clears the sequence and starts capturing
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeReplaying:
		c.publishLocked(UpdateStatus, "Cannot record while a replay is running")
		return fmt.Errorf("%w: replay in progress", ErrBusy)
	case ModeRecording:
		return nil
	}

	c.sink.Start()
	c.mode = ModeRecording
	c.publishLocked(UpdateStatus, "Recording...")
	return nil
}

// StopRecording freezes the sequence and saves it
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeRecording {
		return fmt.Errorf("%w: not recording", ErrIdle)
	}

	events := c.sink.Stop()
	c.mode = ModeIdle
	if err := store.Save(c.fs, c.path, events); err != nil {
		c.publishLocked(UpdateStatus, fmt.Sprintf("Failed to save recording: %v", err))
		return err
	}
	c.publishLocked(UpdateStatus, fmt.Sprintf("Recording saved (%d events)", len(events)))
	return nil
}

// ToggleRecording starts recording when idle and stops it when recording
func (c *Controller) ToggleRecording() error {
	c.mu.Lock()
	recording := c.mode == ModeRecording
	c.mu.Unlock()

	if recording {
		return c.StopRecording()
	}
	return c.StartRecording()
}

// TriggerReplayNow starts a replay of the saved recording
func (c *Controller) TriggerReplayNow() error {
	return c.startReplay("manual")
}

// StopReplay interrupts the running replay and waits for it to end or
// for ctx to expire
func (c *Controller) StopReplay(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeReplaying {
		c.mu.Unlock()
		return fmt.Errorf("%w: no replay running", ErrIdle)
	}
	if !c.stopping {
		c.stopping = true
		close(c.stop)
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) fire(e schedule.Entry) bool {
	err := c.startReplay(e.Key())
	return !errors.Is(err, ErrBusy)
}

// startReplay loads the recording from disk and plays it on a new goroutine
func (c *Controller) startReplay(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeRecording:
		c.publishLocked(UpdateStatus, "Cannot replay while recording")
		return fmt.Errorf("%w: recording in progress", ErrBusy)
	case ModeReplaying:
		return fmt.Errorf("%w: replay in progress", ErrBusy)
	}

	events, err := store.Load(c.fs, c.path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.publishLocked(UpdateStatus, "No recording to replay")
		} else {
			c.publishLocked(UpdateStatus, fmt.Sprintf("Cannot replay: %v", err))
		}
		return err
	}

	c.mode = ModeReplaying
	c.stop = make(chan struct{})
	c.stopping = false
	c.done = make(chan struct{})
	c.publishLocked(UpdateStatus, fmt.Sprintf("Replaying %d events (%s)", len(events), reason))

	go c.runReplay(c.baseCtx, events, reason, c.stop, c.done)
	return nil
}

func (c *Controller) runReplay(ctx context.Context, events []input.Event, reason string, stop, done chan struct{}) {
	shouldContinue := func() bool {
		select {
		case <-stop:
			return false
		default:
		}
		return ctx.Err() == nil
	}

	out := c.pacer.Replay(events, shouldContinue)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeIdle
	c.last = &ReplayResult{
		Status:   out.Status,
		Reason:   reason,
		Index:    out.Index,
		Total:    out.Total,
		Failures: len(out.Failures),
		Finished: c.now(),
	}
	close(done)

	switch out.Status {
	case replay.StatusEmpty:
		c.publishLocked(UpdateStatus, "Recording is empty, nothing replayed")
	case replay.StatusInterrupted:
		c.publishLocked(UpdateStatus, fmt.Sprintf("Replay stopped at event %d of %d", out.Index, out.Total))
	default:
		msg := fmt.Sprintf("Replay completed (%d events)", out.Total)
		if n := len(out.Failures); n > 0 {
			msg = fmt.Sprintf("%s, %d failed: %v", msg, n, out.Failures[0])
		}
		c.publishLocked(UpdateStatus, msg)
	}
}

// AddScheduleEntry parses text and schedules it
func (c *Controller) AddScheduleEntry(text string) (schedule.Entry, error) {
	e, err := schedule.Parse(text)
	if err != nil {
		return schedule.Entry{}, err
	}
	if err := c.trigger.Add(e); err != nil {
		return schedule.Entry{}, err
	}
	c.publish(UpdateStatus, fmt.Sprintf("Scheduled %s", e.Key()))
	c.schedulesChanged()
	return e, nil
}

// RemoveScheduleEntry unschedules the entry with the given key
func (c *Controller) RemoveScheduleEntry(key string) error {
	key = schedule.NormalizeKey(key)
	if err := c.trigger.Remove(key); err != nil {
		return err
	}

	c.mu.Lock()
	if c.auto && key == c.autoKey() {
		c.auto = false
		c.autoOwned = false
	}
	c.publishLocked(UpdateStatus, fmt.Sprintf("Removed %s", key))
	c.mu.Unlock()

	c.schedulesChanged()
	return nil
}

// ScheduleEntries returns the scheduled entries in insertion order
func (c *Controller) ScheduleEntries() []schedule.Entry {
	return c.trigger.Entries()
}

// ToggleAutoReplay switches periodic replay on or off. Turning it on
// replays immediately and then every AutoInterval; turning it off also
// stops a running replay. A user schedule with the same period is taken
// over as the auto entry and left in place when auto replay is turned
// off. It reports the new state.
func (c *Controller) ToggleAutoReplay(ctx context.Context) (bool, error) {
	c.mu.Lock()
	on, owned := c.auto, c.autoOwned
	key := c.autoKey()
	interval := c.autoInterval
	c.mu.Unlock()

	if on {
		if owned {
			if err := c.trigger.Remove(key); err != nil && !errors.Is(err, schedule.ErrUnknownEntry) {
				return true, err
			}
		}
		c.mu.Lock()
		c.auto = false
		c.autoOwned = false
		c.publishLocked(UpdateStatus, "Auto replay off")
		c.mu.Unlock()

		if err := c.StopReplay(ctx); err != nil && !errors.Is(err, ErrIdle) {
			return false, err
		}
		return false, nil
	}

	owned, err := c.addAutoEntry(interval)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.auto = true
	c.autoOwned = owned
	c.publishLocked(UpdateStatus, fmt.Sprintf("Auto replay every %s", interval))
	c.mu.Unlock()

	if err := c.TriggerReplayNow(); err != nil && !errors.Is(err, ErrBusy) {
		return true, err
	}
	return true, nil
}

// addAutoEntry schedules every d. It reports false when a user entry with
// that period already exists and is reused.
func (c *Controller) addAutoEntry(d time.Duration) (bool, error) {
	e, err := schedule.Every(d)
	if err != nil {
		return false, err
	}
	if err := c.trigger.Add(e); err != nil {
		if errors.Is(err, schedule.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetAutoInterval changes the auto-replay period. While auto replay is on
// its entry is moved to the new period.
func (c *Controller) SetAutoInterval(d time.Duration) error {
	if _, err := schedule.Every(d); err != nil {
		return err
	}

	c.mu.Lock()
	on, owned := c.auto, c.autoOwned
	oldKey := c.autoKey()
	same := d == c.autoInterval
	c.mu.Unlock()
	if same {
		return nil
	}

	if on {
		nowOwned, err := c.addAutoEntry(d)
		if err != nil {
			return err
		}
		if owned {
			if err := c.trigger.Remove(oldKey); err != nil && !errors.Is(err, schedule.ErrUnknownEntry) {
				return err
			}
		}
		owned = nowOwned
	}

	c.mu.Lock()
	c.autoInterval = d
	c.autoOwned = on && owned
	fn := c.onIntervalChanged
	c.publishLocked(UpdateStatus, fmt.Sprintf("Auto replay interval set to %s", d))
	c.mu.Unlock()

	if fn != nil {
		fn(d)
	}
	return nil
}

// Schedules returns the user schedule keys, without the auto-replay entry
func (c *Controller) Schedules() []string {
	c.mu.Lock()
	skip := ""
	if c.auto && c.autoOwned {
		skip = c.autoKey()
	}
	c.mu.Unlock()

	var keys []string
	for _, e := range c.trigger.Entries() {
		if e.Key() == skip {
			continue
		}
		keys = append(keys, e.Key())
	}
	return keys
}

func (c *Controller) schedulesChanged() {
	c.mu.Lock()
	fn := c.onChanged
	c.mu.Unlock()
	if fn != nil {
		fn(c.Schedules())
	}
}

func (c *Controller) autoKey() string {
	return "every " + c.autoInterval.String()
}
