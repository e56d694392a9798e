package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli"

	"mousereplay/internal/autostart"
	"mousereplay/internal/schedule"
)

// addEntry returns entries with text appended in normalised form
func addEntry(entries []string, text string) ([]string, schedule.Entry, error) {
	e, err := schedule.Parse(text)
	if err != nil {
		return nil, schedule.Entry{}, err
	}
	for _, existing := range entries {
		if schedule.NormalizeKey(existing) == e.Key() {
			return nil, schedule.Entry{}, fmt.Errorf("%w: %s", schedule.ErrDuplicate, e.Key())
		}
	}
	return append(entries, e.Key()), e, nil
}

// removeEntry returns entries without the one matching text
func removeEntry(entries []string, text string) ([]string, error) {
	key := schedule.NormalizeKey(text)
	for i, existing := range entries {
		if schedule.NormalizeKey(existing) == key {
			out := append([]string{}, entries[:i]...)
			return append(out, entries[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", schedule.ErrUnknownEntry, key)
}

func scheduleList(ctx *cli.Context) error {
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	entries := cfgMgr.Get().Schedule.Entries
	if len(entries) == 0 {
		fmt.Println("mousereplay: no schedule entries")
		return nil
	}
	for _, text := range entries {
		if _, err := schedule.Parse(text); err != nil {
			fmt.Printf("%s  (invalid: %v)\n", text, err)
			continue
		}
		fmt.Println(schedule.NormalizeKey(text))
	}
	return nil
}

func scheduleAdd(ctx *cli.Context) error {
	text := joinArgs(ctx)
	if text == "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	entries, e, err := addEntry(cfgMgr.Get().Schedule.Entries, text)
	if err != nil {
		return err
	}
	if err := cfgMgr.SetSchedules(entries); err != nil {
		return err
	}
	fmt.Printf("Added %s. Restart a running recorder to pick it up.\n", e.Key())
	return nil
}

func scheduleRemove(ctx *cli.Context) error {
	text := joinArgs(ctx)
	if text == "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	entries, err := removeEntry(cfgMgr.Get().Schedule.Entries, text)
	if err != nil {
		return err
	}
	if err := cfgMgr.SetSchedules(entries); err != nil {
		return err
	}
	fmt.Printf("Removed %s.\n", schedule.NormalizeKey(text))
	return nil
}

// joinArgs allows unquoted entries such as: schedule add every 10m
func joinArgs(ctx *cli.Context) string {
	return strings.TrimSpace(strings.Join(ctx.Args(), " "))
}

func autostartEnable(ctx *cli.Context) error {
	return setAutostart(ctx, true)
}

func autostartDisable(ctx *cli.Context) error {
	return setAutostart(ctx, false)
}

func setAutostart(ctx *cli.Context, enabled bool) error {
	cfgMgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if enabled {
		err = autostart.Enable("run")
	} else {
		err = autostart.Disable()
	}
	if err != nil {
		if errors.Is(err, autostart.ErrUnsupported) {
			fmt.Println("mousereplay: autostart is not supported on this platform")
		}
		return err
	}
	return cfgMgr.SetStartOnBoot(enabled)
}

func autostartStatus(ctx *cli.Context) error {
	state := "disabled"
	if autostart.IsEnabled() {
		state = "enabled"
	}
	fmt.Printf("autostart: %s (%s)\n", state, autostart.Platform())
	return nil
}
