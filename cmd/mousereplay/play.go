package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"mousereplay/internal/input"
	"mousereplay/internal/replay"
	"mousereplay/internal/store"
)

var playFlags = []cli.Flag{
	cli.Float64Flag{
		Name:  "speed, s",
		Usage: "playback speed, 2 plays twice as fast (default: from config)",
	},
	cli.BoolFlag{
		Name:  "dry-run, n",
		Usage: "pace the recording without moving the pointer",
	},
}

// nopPointer accepts every event
type nopPointer struct{}

func (nopPointer) MoveTo(x, y int) error        { return nil }
func (nopPointer) Press(b input.Button) error   { return nil }
func (nopPointer) Release(b input.Button) error { return nil }

func play(ctx *cli.Context) error {
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()
	path := recordingFile(ctx, cfgMgr)

	events, err := store.Load(afero.NewOsFs(), path)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("mousereplay: recording is empty")
		return nil
	}

	var ptr input.Pointer = input.NewPointer()
	if ctx.Bool("dry-run") {
		ptr = nopPointer{}
	}
	speed := cfg.Replay.Speed
	if ctx.IsSet("speed") {
		speed = ctx.Float64("speed")
	}

	p := mpb.New(mpb.WithWidth(64))
	name := "Replaying"
	bar := p.New(int64(len(events)),
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "Complete",
			),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d"),
		),
	)

	pacer, err := replay.NewPacer(ptr, replay.Options{
		Poll:        cfg.Replay.Poll.Std(),
		Speed:       speed,
		ReleaseHeld: true,
		OnProgress: func(done, total int) {
			bar.SetCurrent(int64(done))
		},
	})
	if err != nil {
		bar.Abort(true)
		p.Wait()
		return err
	}

	// Ctrl+C stops at the next poll instead of killing the process mid-click
	var stopped atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		stopped.Store(true)
	}()

	fmt.Printf(">> Replaying %d events from %s <<\n", len(events), path)
	out := pacer.Replay(events, func() bool { return !stopped.Load() })
	if out.Status != replay.StatusCompleted {
		bar.Abort(false)
	}
	p.Wait()

	fmt.Println(summary(out))
	if len(out.Failures) > 0 {
		return errors.Join(failureErrors(out.Failures)...)
	}
	return nil
}

func summary(out replay.Outcome) string {
	s := fmt.Sprintf("%s at %d/%d", out.Status, out.Index, out.Total)
	if out.Fallbacks > 0 {
		s += fmt.Sprintf(", %d unknown buttons played as left", out.Fallbacks)
	}
	if len(out.Failures) > 0 {
		s += fmt.Sprintf(", %d events failed", len(out.Failures))
	}
	return s
}

func failureErrors(failures []replay.Failure) []error {
	errs := make([]error, len(failures))
	for i := range failures {
		errs[i] = failures[i]
	}
	return errs
}

func show(ctx *cli.Context) error {
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	path := recordingFile(ctx, cfgMgr)

	events, err := store.Load(afero.NewOsFs(), path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d events\n", path, len(events))
	for i, ev := range events {
		fmt.Printf("%5d  %s\n", i, ev)
	}
	return nil
}
