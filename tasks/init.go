package tasks

import (
	"errors"

	"go.uber.org/zap"

	"minikern/kernel"
)

// Instance is one process init starts.
type Instance struct {
	Name     string
	Priority int
	Task     kernel.Task
}

// Init is process 1. It forks one child per instance, lets each child exec
// its program at the requested priority, then reaps zombies forever.
//
// Registers: EBX is the next instance, EDI counts reaped children and ESI
// counts failed forks.
type Init struct {
	Instances []Instance
	Log       *zap.Logger
}

func (t *Init) logger() *zap.Logger {
	if t.Log == nil {
		return zap.NewNop()
	}
	return t.Log
}

func (t *Init) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	switch r.EIP {
	case 0:
		if int(r.EBX) >= len(t.Instances) {
			r.EIP = 2
			return
		}
		r.EIP = 1
		if _, err := ctx.Fork(); err != nil {
			t.logger().Warn("init: fork failed",
				zap.String("task", t.Instances[r.EBX].Name), zap.Error(err))
			r.ESI++
			r.EBX++
			r.EIP = 0
		}
	case 1:
		inst := t.Instances[r.EBX]
		if r.EAX == 0 {
			// Priority 0 keeps the priority inherited from init.
			if inst.Priority > 0 {
				ctx.Nice(ctx.Priority() - inst.Priority)
			}
			ctx.Exec(inst.Name, inst.Task)
			return
		}
		t.logger().Info("init: started",
			zap.String("task", inst.Name), zap.Uint32("pid", r.EAX))
		r.EBX++
		r.EIP = 0
	default:
		pid, code, err := ctx.Wait()
		switch {
		case errors.Is(err, kernel.ErrBlocked):
		case errors.Is(err, kernel.ErrNoChild):
			ctx.Pause()
		case err != nil:
			t.logger().Error("init: wait", zap.Error(err))
			ctx.Pause()
		default:
			r.EDI++
			t.logger().Info("init: reaped", zap.Int("pid", pid), zap.Int("code", code))
		}
	}
}

// Boot is the idle program: it forks init once and then pauses forever.
type Boot struct {
	Init kernel.Task
}

func (t Boot) Step(ctx *kernel.Context) {
	r := ctx.Regs()
	switch r.EIP {
	case 0:
		r.EIP = 1
		if _, err := ctx.Fork(); err != nil {
			ctx.Kernel().Panic("boot: cannot fork init: %v", err)
		}
	case 1:
		if r.EAX == 0 {
			ctx.Exec("init", t.Init)
			return
		}
		r.EIP = 2
		ctx.Pause()
	default:
		ctx.Pause()
	}
}
