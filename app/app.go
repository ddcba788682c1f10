// Package app assembles the machine: kernel, memory manager, boot programs
// and the host facing console, panic screen and operator keys.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"minikern/hal"
	"minikern/internal/buildinfo"
	"minikern/internal/config"
	"minikern/kernel"
	"minikern/mm"
	"minikern/tasks"
)

// Options configures New.
type Options struct {
	Config config.Config
	// HoldOnPanic keeps Step returning nil after a kernel panic so a window
	// can keep showing the panic screen.
	HoldOnPanic bool
}

// New boots a machine on h. The returned machine does nothing until its
// Step method is driven by the host loop.
func New(h hal.HAL, opts Options) (*Machine, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	m := &Machine{
		cfg:  cfg,
		hold: opts.HoldOnPanic,
		out:  h.Logger(),
		mem:  mm.New(cfg.MemoryPages),
	}
	if d := h.Display(); d != nil {
		m.scr = newScreen(d.Framebuffer())
	}
	m.con = newConsole(m.scr)
	m.log = newLogger(m.out, cfg.Level(), m.con)
	if t := h.Time(); t != nil {
		m.ticks = t.Ticks()
	}
	if in := h.Input(); in != nil {
		if kbd := in.Keyboard(); kbd != nil {
			m.keys = kbd.Events()
		}
	}

	k, initTask, err := boot(cfg, m.log, m.mem)
	if err != nil {
		return nil, err
	}
	m.k = k
	m.op = newOperator(k, m.log.Named("operator"), m.out)
	k.SetPanicHandler(func(info kernel.PanicInfo) {
		showPanic(m.out, m.scr, info)
	})

	pulse := k.NewWaitQueue("pulse")
	tasks.StartPulse(k, pulse, int64(cfg.PulsePeriod))
	inst, err := tasks.Build(cfg.TaskSpecs(), tasks.Env{Pulse: pulse})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	initTask.Instances = inst

	m.log.Info("boot",
		zap.String("build", buildinfo.Short()),
		zap.Int("hz", cfg.HZ),
		zap.Int("nr_tasks", cfg.NrTasks),
		zap.Stringer("wake_policy", k.Config().WakePolicy),
		zap.Int("tasks", len(inst)))
	m.publish()
	return m, nil
}

// boot creates the kernel with the boot program as idle. A panic during
// boot is returned as an error.
func boot(cfg config.Config, log *zap.Logger, mem *mm.Manager) (k *kernel.Kernel, initTask *tasks.Init, err error) {
	defer func() {
		if r := recover(); r != nil {
			var f *kernel.Fault
			if e, ok := r.(error); ok && errors.As(e, &f) {
				err = fmt.Errorf("app: boot: %w", f)
				return
			}
			panic(r)
		}
	}()

	initTask = &tasks.Init{Log: log.Named("init")}
	kc := cfg.KernelConfig()
	kc.Logger = log.Named("kernel")
	kc.Memory = mem
	kc.Idle = tasks.Boot{Init: initTask}
	return kernel.New(kc), initTask, nil
}
