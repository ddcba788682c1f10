package app

import (
	"errors"

	"go.uber.org/zap"

	"minikern/hal"
	"minikern/kernel"
)

// operatorKeys maps typed keys to the signal sent to the selected process.
var operatorKeys = map[rune]kernel.Signal{
	'k': kernel.SIGKILL,
	't': kernel.SIGTERM,
	's': kernel.SIGSTOP,
	'c': kernel.SIGCONT,
	'u': kernel.SIGUSR1,
	'a': kernel.SIGALRM,
}

// operator turns keyboard input into process selection and signals. Idle
// and init cannot be selected.
type operator struct {
	k   *kernel.Kernel
	log *zap.Logger
	out hal.Logger

	selected int
}

func newOperator(k *kernel.Kernel, log *zap.Logger, out hal.Logger) *operator {
	return &operator{k: k, log: log, out: out}
}

// handle applies one key event and reports whether the screen is stale.
func (o *operator) handle(ev hal.KeyEvent) bool {
	if !ev.Press {
		return false
	}
	switch ev.Code {
	case hal.KeyUp:
		o.move(-1)
		return true
	case hal.KeyDown:
		o.move(1)
		return true
	case hal.KeyEscape:
		o.selected = 0
		return true
	case hal.KeyF1:
		o.dump()
		return false
	case hal.KeyUnknown:
		sig, ok := operatorKeys[ev.Rune]
		if !ok {
			return false
		}
		o.signal(sig)
		return true
	}
	return false
}

// selectable lists the PIDs the operator may signal, in slot order.
func (o *operator) selectable() []int {
	var pids []int
	for _, pi := range o.k.Processes() {
		if pi.PID > 1 && pi.State != kernel.StateZombie {
			pids = append(pids, pi.PID)
		}
	}
	return pids
}

func (o *operator) move(delta int) {
	pids := o.selectable()
	if len(pids) == 0 {
		o.selected = 0
		return
	}
	idx := -1
	for i, pid := range pids {
		if pid == o.selected {
			idx = i
			break
		}
	}
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(pids) - 1
	default:
		idx = (idx + delta + len(pids)) % len(pids)
	}
	o.selected = pids[idx]
}

func (o *operator) signal(sig kernel.Signal) {
	if o.selected == 0 {
		return
	}
	err := o.k.Kill(o.selected, sig)
	switch {
	case errors.Is(err, kernel.ErrNoProcess):
		o.log.Warn("process is gone", zap.Int("pid", o.selected))
		o.selected = 0
	case err != nil:
		o.log.Warn("kill", zap.Int("pid", o.selected), zap.Error(err))
	default:
		o.log.Info("kill", zap.Int("pid", o.selected), zap.Stringer("signal", sig))
	}
}

// dump writes the process table to the host log.
func (o *operator) dump() {
	if o.out == nil {
		return
	}
	_ = o.k.ShowStat(lineSink{out: o.out})
}
