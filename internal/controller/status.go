package controller

import (
	"log"
	"time"

	"mousereplay/internal/replay"
)

// Mode is what the controller is doing. Exactly one mode is active.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeRecording Mode = "recording"
	ModeReplaying Mode = "replaying"
)

// ReplayResult summarises the last finished replay
type ReplayResult struct {
	Status   replay.Status `json:"status"`
	Reason   string        `json:"reason"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Failures int           `json:"failures"`
	Finished time.Time     `json:"finished"`
}

// Snapshot is a read-only view of the controller state
type Snapshot struct {
	Mode          Mode          `json:"mode"`
	AutoReplay    bool          `json:"auto_replay"`
	AutoInterval  string        `json:"auto_interval"`
	Schedules     []string      `json:"schedules"`
	RecordingFile string        `json:"recording_file"`
	Recorded      int           `json:"recorded"`
	Message       string        `json:"message"`
	LastReplay    *ReplayResult `json:"last_replay,omitempty"`
}

// UpdateKind classifies an Update
type UpdateKind string

const (
	UpdateStatus UpdateKind = "status"
	UpdateNotice UpdateKind = "notice"
)

// Update is one entry of the status stream
type Update struct {
	Kind     UpdateKind
	Message  string
	At       time.Time
	Snapshot Snapshot
}

const subscriberBuffer = 32

// Subscribe returns a channel of status updates and a function that ends
// the subscription. Updates are dropped for subscribers that fall behind.
func (c *Controller) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Snapshot returns the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Mode:          c.mode,
		AutoReplay:    c.auto,
		AutoInterval:  c.autoInterval.String(),
		RecordingFile: c.path,
		Recorded:      c.store.Len(),
		Message:       c.message,
	}
	for _, e := range c.trigger.Entries() {
		s.Schedules = append(s.Schedules, e.Key())
	}
	if c.last != nil {
		r := *c.last
		s.LastReplay = &r
	}
	return s
}

// publishLocked records msg as the current status and fans it out.
// c.mu must be held.
func (c *Controller) publishLocked(kind UpdateKind, msg string) {
	if kind == UpdateStatus {
		c.message = msg
	}
	log.Printf("Controller: %s", msg)

	u := Update{Kind: kind, Message: msg, At: c.now(), Snapshot: c.snapshotLocked()}
	for ch := range c.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (c *Controller) publish(kind UpdateKind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked(kind, msg)
}
