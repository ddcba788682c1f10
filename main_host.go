//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"minikern/app"
	"minikern/hal"
	"minikern/internal/buildinfo"
	"minikern/internal/config"
)

func main() {
	var (
		hcfg     hal.HeadlessConfig
		headless bool
		path     string
		wake     string
		version  bool
	)
	flag.StringVar(&path, "config", "", "Machine configuration file (YAML). Empty uses the built-in defaults.")
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.HZ, "hz", 0, "Override the timer frequency.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.BoolVar(&hcfg.Fast, "fast", false, "Do not pace headless ticks to wall time.")
	flag.StringVar(&wake, "wake", "", "Override the wait queue policy (fifo or legacy).")
	flag.BoolVar(&version, "version", false, "Print the build stamp and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}

	cfg, err := config.Load(path)
	if err != nil {
		fail(err)
	}
	if hcfg.HZ > 0 {
		cfg.HZ = hcfg.HZ
	}
	if wake != "" {
		cfg.WakePolicy = wake
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	hcfg.HZ = cfg.HZ

	newApp := func(hold bool) func(hal.HAL) func() error {
		return func(h hal.HAL) func() error {
			m, err := app.New(h, app.Options{Config: cfg, HoldOnPanic: hold})
			if err != nil {
				return func() error { return err }
			}
			return m.Step
		}
	}

	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, newApp(false), hcfg); err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
		return
	}

	if err := hal.RunWindow(newApp(true), hcfg.Options); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
