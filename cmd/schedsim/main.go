// Command schedsim boots the machine without a host loop, runs it for a
// fixed number of ticks and prints the final process table.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"minikern/app"
	"minikern/hal"
	"minikern/internal/config"
)

func main() {
	var (
		path    = flag.String("config", "", "Machine configuration file (YAML). Empty uses the built-in defaults.")
		ticks   = flag.Int("ticks", 1000, "Timer interrupts to simulate.")
		wake    = flag.String("wake", "", "Override the wait queue policy (fifo or legacy).")
		verbose = flag.Bool("v", false, "Write the kernel log to stderr.")
		stat    = flag.Bool("stat", false, "Print the raw process table instead of the formatted one.")
	)
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fatalf("%v", err)
	}
	if *wake != "" {
		cfg.WakePolicy = *wake
	}

	var logOut io.Writer = io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	m, err := simulate(cfg, *ticks, logOut)
	if err != nil {
		fatalf("%v", err)
	}
	if *stat {
		if err := m.Kernel().ShowStat(os.Stdout); err != nil {
			fatalf("%v", err)
		}
		return
	}
	fmt.Println(render(m.Snapshot()))
}

// simulate runs cfg for n ticks. A kernel panic is returned as the error.
func simulate(cfg config.Config, n int, logOut io.Writer) (*app.Machine, error) {
	cfg.StatusEvery = 0
	h := hal.New(hal.Options{HZ: cfg.HZ, Out: logOut})
	m, err := app.New(h, app.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	if err := m.Run(n); err != nil {
		return nil, err
	}
	return m, nil
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "schedsim: "+format+"\n", args...)
	os.Exit(2)
}
