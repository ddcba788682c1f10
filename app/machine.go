package app

import (
	"errors"

	"go.uber.org/zap"

	"minikern/hal"
	"minikern/internal/config"
	"minikern/kernel"
	"minikern/mm"
)

// Status is a snapshot of the machine taken every status period.
type Status struct {
	Jiffies    uint64
	Switches   uint64
	Policy     kernel.WakePolicy
	Timers     int
	FreePages  int
	TotalPages int
	// Selected is the PID the operator has selected, or 0.
	Selected int
	Procs    []kernel.ProcInfo
}

// Machine owns the kernel and drives it from the host tick stream. Every
// timer interrupt is followed by a fixed number of task steps.
type Machine struct {
	cfg  config.Config
	hold bool

	k   *kernel.Kernel
	mem *mm.Manager
	log *zap.Logger
	out hal.Logger

	scr *screen
	con *console
	op  *operator

	ticks <-chan uint64
	keys  <-chan hal.KeyEvent

	status Status
	fault  *kernel.Fault
}

// Kernel returns the machine's kernel.
func (m *Machine) Kernel() *kernel.Kernel { return m.k }

// Status returns the last published snapshot.
func (m *Machine) Status() Status { return m.status }

// Snapshot publishes a fresh status and returns it.
func (m *Machine) Snapshot() Status {
	m.publish()
	return m.status
}

// Fault returns the kernel panic that halted the machine, if any.
func (m *Machine) Fault() *kernel.Fault { return m.fault }

// Step handles pending keys and every tick delivered since the previous
// call. After a kernel panic it returns the fault, or nil when holding.
func (m *Machine) Step() error {
	if m.fault != nil {
		return m.halted()
	}
	m.drainKeys()
	for {
		select {
		case _, ok := <-m.ticks:
			if !ok {
				return nil
			}
			if err := m.tick(); err != nil {
				return m.halted()
			}
		default:
			return nil
		}
	}
}

func (m *Machine) halted() error {
	if m.hold {
		return nil
	}
	return m.fault
}

func (m *Machine) drainKeys() {
	for {
		select {
		case ev, ok := <-m.keys:
			if !ok {
				m.keys = nil
				return
			}
			if m.op.handle(ev) {
				m.publish()
			}
		default:
			return
		}
	}
}

// tick runs one timer interrupt and the task steps that follow it.
func (m *Machine) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			var f *kernel.Fault
			if e, ok := r.(error); ok && errors.As(e, &f) {
				m.fault = f
				err = f
				return
			}
			panic(r)
		}
	}()

	m.k.Tick(kernel.ModeUser)
	for i := 0; i < m.cfg.StepsPerTick; i++ {
		m.k.Step()
	}
	if every := uint64(m.cfg.StatusEvery); every > 0 && m.k.Jiffies()%every == 0 {
		m.publish()
	}
	return nil
}

// Run drives n ticks directly, without a tick source. It is used by tests
// and offline runs.
func (m *Machine) Run(n int) error {
	for i := 0; i < n; i++ {
		if m.fault != nil {
			return m.fault
		}
		if err := m.tick(); err != nil {
			return err
		}
	}
	return nil
}

// publish snapshots the kernel and redraws the console.
func (m *Machine) publish() {
	m.status = Status{
		Jiffies:    m.k.Jiffies(),
		Switches:   m.k.Switches(),
		Policy:     m.k.Config().WakePolicy,
		Timers:     len(m.k.PendingTimers()),
		FreePages:  m.mem.Free(),
		TotalPages: m.mem.Total(),
		Selected:   m.op.selected,
		Procs:      m.k.Processes(),
	}
	if m.con != nil {
		m.con.render(m.status)
	}
}
