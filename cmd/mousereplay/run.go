package main

import (
	"context"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"mousereplay/internal/api"
	"mousereplay/internal/autostart"
	"mousereplay/internal/config"
	"mousereplay/internal/controller"
	"mousereplay/internal/hotkey"
	"mousereplay/internal/input"
	"mousereplay/internal/replay"
	"mousereplay/internal/schedule"
	"mousereplay/internal/tray"
	"mousereplay/internal/ui"
)

const stopTimeout = 5 * time.Second

var runFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "no-tray",
		Usage: "run without the system tray until interrupted",
	},
}

// newController builds a controller from the loaded configuration
func newController(cfg *config.Config, dir string, fs afero.Fs, ptr input.Pointer) (*controller.Controller, error) {
	return controller.New(controller.Options{
		RecordingFile: cfg.RecordingPath(dir),
		Fs:            fs,
		Pointer:       ptr,
		AutoInterval:  cfg.Replay.AutoInterval.Std(),
		Replay: replay.Options{
			Poll:  cfg.Replay.Poll.Std(),
			Speed: cfg.Replay.Speed,
		},
		Schedule: schedule.Options{
			Tick:      cfg.Schedule.TickInterval.Std(),
			Tolerance: cfg.Schedule.ClockJumpTolerance.Std(),
		},
	})
}

// restoreSchedules adds the persisted entries, skipping ones that no longer parse
func restoreSchedules(c *controller.Controller, entries []string) {
	for _, text := range entries {
		if _, err := c.AddScheduleEntry(text); err != nil {
			log.Printf("Warning: skipping schedule entry %q: %v", text, err)
		}
	}
}

func stopReplay(c *controller.Controller) error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return c.StopReplay(ctx)
}

func toggleAuto(c *controller.Controller) error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_, err := c.ToggleAutoReplay(ctx)
	return err
}

// registerHotkeys binds the configured combinations to controller operations
func registerHotkeys(hk *hotkey.Manager, cfg config.HotkeyConfig, c *controller.Controller) {
	bind := func(combo, name string, op func() error) {
		if combo == "" {
			return
		}
		err := hk.Register(combo, func() {
			if err := op(); err != nil {
				log.Printf("Hotkey: %s failed: %v", name, err)
			}
		})
		if err != nil {
			log.Printf("Warning: failed to register %s hotkey %q: %v", name, combo, err)
		}
	}

	hk.SetDebounce(cfg.Debounce.Std())
	bind(cfg.ToggleRecording, "record", c.ToggleRecording)
	bind(cfg.ToggleAuto, "auto replay", func() error { return toggleAuto(c) })
	bind(cfg.ReplayNow, "replay", c.TriggerReplayNow)
	bind(cfg.StopReplay, "stop", func() error { return stopReplay(c) })
}

// syncAutostart makes the login item match start_on_boot
func syncAutostart(want bool) {
	if autostart.IsEnabled() == want {
		return
	}
	var err error
	if want {
		err = autostart.Enable("run")
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		log.Printf("Warning: failed to update autostart: %v", err)
	}
}

// windowURL is the control page address, carrying the token when one is set
func windowURL(addr net.Addr, token string) string {
	u := url.URL{Scheme: "http", Host: addr.String(), Path: "/"}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String()
}

func runService(ctx *cli.Context) error {
	log.Println("Mouse Replay starting...")

	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()

	c, err := newController(cfg, cfgMgr.Dir(), afero.NewOsFs(), input.NewPointer())
	if err != nil {
		return err
	}
	restoreSchedules(c, cfg.Schedule.Entries)
	c.OnSchedulesChanged(func(entries []string) {
		if err := cfgMgr.SetSchedules(entries); err != nil {
			log.Printf("Warning: failed to save schedules: %v", err)
		}
	})

	c.OnAutoIntervalChanged(func(d time.Duration) {
		if err := cfgMgr.SetAutoInterval(d); err != nil {
			log.Printf("Warning: failed to save auto replay interval: %v", err)
		}
	})

	// Hotkeys arrive through the same hook as the recorded mouse input
	hk := hotkey.NewManager()
	registerHotkeys(hk, cfg.Hotkeys, c)
	cfgMgr.RegisterChangeCallback(func() {
		hk.Clear()
		registerHotkeys(hk, cfgMgr.Get().Hotkeys, c)
	})
	c.Sink().SetKeyHandler(hk.UpdateState)

	hook := input.NewHook()
	if err := hook.Start(c.Sink()); err != nil {
		log.Printf("Warning: input hook unavailable, recording and hotkeys are disabled: %v", err)
	}
	defer hook.Stop()

	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		c.Run(runCtx)
		close(runDone)
	}()

	syncAutostart(cfg.General.StartOnBoot)

	var apiServer *api.Server
	var pageURL string
	if cfg.API.Enabled {
		ln, err := net.Listen("tcp", cfg.API.Addr)
		if err != nil {
			log.Printf("Warning: API disabled, failed to listen on %s: %v", cfg.API.Addr, err)
		} else {
			page := ui.NewPage(ui.PageData{
				Token:           cfg.API.Token,
				RecordHotkey:    cfg.Hotkeys.ToggleRecording,
				AutoHotkey:      cfg.Hotkeys.ToggleAuto,
				ReplayHotkey:    cfg.Hotkeys.ReplayNow,
				StopHotkey:      cfg.Hotkeys.StopReplay,
				DefaultInterval: cfg.Replay.AutoInterval.Std().String(),
			})
			apiServer = api.NewServer(c, api.Options{Token: cfg.API.Token, Page: page})
			pageURL = windowURL(ln.Addr(), cfg.API.Token)
			go func() {
				if err := apiServer.Serve(ln); err != nil {
					log.Printf("API server error: %v", err)
				}
			}()
		}
	}
	if cfg.General.OpenWindow && pageURL != "" {
		ui.OpenBrowser(pageURL)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if ctx.Bool("no-tray") {
		<-sigCh
	} else {
		runTray(c, pageURL, sigCh)
	}

	log.Println("Shutting down...")

	// A recording in progress is kept rather than lost
	if c.Snapshot().Mode == controller.ModeRecording {
		if err := c.StopRecording(); err != nil {
			log.Printf("Warning: failed to save recording: %v", err)
		}
	}

	cancel()
	<-runDone
	if apiServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), stopTimeout)
		defer done()
		apiServer.Shutdown(shutdownCtx)
	}
	return nil
}

// runTray shows the tray menu and blocks until Quit or a signal
func runTray(c *controller.Controller, pageURL string, sigCh <-chan os.Signal) {
	t := tray.New("Mouse Replay")

	report := func(name string, op func() error) func() {
		return func() {
			if err := op(); err != nil {
				log.Printf("Tray: %s failed: %v", name, err)
			}
		}
	}

	recordID := t.AddMenuItem("Start Recording", report("record", c.ToggleRecording))
	t.AddMenuItem("Replay Now", report("replay", c.TriggerReplayNow))
	autoID := t.AddMenuItem("Toggle Auto Replay", report("auto replay", func() error { return toggleAuto(c) }))
	t.AddMenuItem("Stop Replay", report("stop", func() error { return stopReplay(c) }))
	t.AddSeparator()
	if pageURL != "" {
		t.AddMenuItem("Open Window...", func() { ui.OpenBrowser(pageURL) })
	}
	t.AddMenuItem("Quit", t.Stop)

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()
	go t.Follow(updates, recordID, autoID)

	go func() {
		<-sigCh
		t.Stop()
	}()

	t.Run()
}
