package tasks

import (
	"errors"

	"minikern/kernel"
)

// Spin burns CPU without blocking. EAX counts steps; with Steps > 0 the
// process exits after that many.
type Spin struct {
	Steps int
}

func (t Spin) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	r.EAX++
	if t.Steps > 0 && int(r.EAX) >= t.Steps {
		ctx.Exit(0)
	}
}

// Sleeper blocks interruptibly on Queue and does one step of work per
// wakeup. ECX counts wakeups; with Wakeups > 0 it exits after that many.
type Sleeper struct {
	Queue   *kernel.WaitQueue
	Wakeups int
}

func (t Sleeper) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	if t.Queue == nil {
		ctx.Pause()
		return
	}
	switch r.EIP {
	case 0:
		r.EIP = 1
		ctx.SleepInterruptible(t.Queue)
	default:
		r.ECX++
		r.EIP = 0
		if t.Wakeups > 0 && int(r.ECX) >= t.Wakeups {
			ctx.Exit(0)
		}
	}
}

// Alarm arms an alarm and pauses until it fires, over and over. EDX counts
// caught SIGALRMs.
type Alarm struct {
	Seconds int
}

func (t Alarm) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	secs := t.Seconds
	if secs <= 0 {
		secs = 1
	}
	switch r.EIP {
	case 0:
		r.EIP = 1
		ctx.Alarm(secs)
		ctx.Pause()
	default:
		r.EIP = 0
	}
}

func (t Alarm) HandleSignal(ctx *kernel.Context, sig kernel.Signal) bool {
	if sig != kernel.SIGALRM {
		return false
	}
	ctx.Regs().EDX++
	return true
}

// Forker forks a short-lived child, waits for it and starts over. Children
// spin for Work steps and exit with their PID's low byte. EBX counts reaped
// children.
type Forker struct {
	Work int
}

func (t Forker) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	switch r.EIP {
	case 0:
		r.EIP = 1
		if _, err := ctx.Fork(); err != nil {
			r.EIP = 0
			r.ESI++
		}
	case 1:
		if r.EAX != 0 {
			r.EIP = 2
			return
		}
		r.ECX++
		if int(r.ECX) >= max(t.Work, 1) {
			ctx.Exit(ctx.PID() & 0xff)
		}
	default:
		_, _, err := ctx.Wait()
		if errors.Is(err, kernel.ErrBlocked) {
			return
		}
		r.EBX++
		r.EIP = 0
	}
}
