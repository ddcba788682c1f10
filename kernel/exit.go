package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// initPID adopts the children of exiting processes.
const initPID = 1

func (k *Kernel) exit(p *Proc, code int) {
	if p.Slot == 0 {
		k.Panic("task[0] trying to exit")
	}

	for fd, f := range p.Files {
		if f != nil {
			f.put()
			p.Files[fd] = nil
		}
	}
	iput(p.Pwd)
	iput(p.Root)
	iput(p.Executable)
	p.Pwd, p.Root, p.Executable = nil, nil, nil
	if p.Space != nil {
		k.mem.Release(p.Space)
		p.Space = nil
	}

	adopter := k.procs.lookup(initPID)
	if adopter == p {
		adopter = nil
	}
	orphanZombie := false
	k.procs.each(func(c *Proc) {
		if c.PPID != p.PID || c == p {
			return
		}
		if adopter == nil {
			c.PPID = 0
			if c.State == StateZombie {
				k.release(c)
			}
			return
		}
		c.PPID = initPID
		if c.State == StateZombie {
			orphanZombie = true
		}
	})
	if orphanZombie {
		adopter.Signal.Add(SIGCHLD)
		k.WakeAll(adopter.childWait)
	}

	p.Alarm = 0
	p.State = StateZombie
	p.ExitCode = code
	k.log.Info("exit",
		zap.Int("pid", p.PID),
		zap.Int("slot", p.Slot),
		zap.Int("code", code),
		zap.Uint64("jiffies", k.jiffies))

	parent := k.procs.lookup(p.PPID)
	if parent == nil || parent.Slot == 0 {
		k.release(p)
	} else {
		parent.Signal.Add(SIGCHLD)
		k.WakeAll(parent.childWait)
	}
	k.Schedule()
}

// release frees the slot and descriptors of a zombie.
func (k *Kernel) release(p *Proc) {
	k.gdt.clear(p.Slot)
	k.procs.release(p.Slot)
}

func (k *Kernel) wait(c *Context) (int, int, error) {
	p := c.p
	var zombie *Proc
	children := 0
	k.procs.each(func(ch *Proc) {
		if ch.PPID != p.PID || ch == p {
			return
		}
		children++
		if zombie == nil && ch.State == StateZombie {
			zombie = ch
		}
	})
	if zombie != nil {
		p.Cutime += zombie.Utime + zombie.Cutime
		p.Cstime += zombie.Stime + zombie.Cstime
		k.release(zombie)
		return zombie.PID, zombie.ExitCode, nil
	}
	if children == 0 {
		return 0, 0, fmt.Errorf("wait: pid %d: %w", p.PID, ErrNoChild)
	}
	p.Signal.Del(SIGCHLD)
	c.SleepInterruptible(p.childWait)
	return 0, 0, ErrBlocked
}

// Kill raises sig on the live process pid. Signal 0 only checks that the
// process exists. SIGKILL and SIGCONT resume a stopped process.
func (k *Kernel) Kill(pid int, sig Signal) error {
	if sig != 0 && !sig.Valid() {
		return fmt.Errorf("kill %d: signal %d: %w", pid, sig, ErrInvalidSignal)
	}
	p := k.procs.lookup(pid)
	if pid <= 0 || p == nil || p.State == StateZombie {
		return fmt.Errorf("kill %d: %w", pid, ErrNoProcess)
	}
	if sig == 0 {
		return nil
	}
	p.Signal.Add(sig)
	if (sig == SIGKILL || sig == SIGCONT) && p.State == StateStopped {
		p.State = StateRunnable
	}
	return nil
}

// deliverSignals hands deliverable signals to the running process. It
// reports false when the process stopped or exited and must not run its
// task this step.
func (k *Kernel) deliverSignals(p *Proc) bool {
	for {
		sig, ok := Deliverable(p.Signal, p.Blocked).Next()
		if !ok {
			return true
		}
		p.Signal.Del(sig)

		if h, ok := p.task.(SignalHandler); ok && sig != SIGKILL && sig != SIGSTOP {
			ctx := &Context{k: k, p: p}
			handled := h.HandleSignal(ctx, sig)
			if ctx.req.kind != reqNone {
				k.finish(ctx)
				return false
			}
			if handled {
				continue
			}
		}

		switch sig {
		case SIGCHLD, SIGCONT:
		case SIGSTOP, SIGTSTP, SIGTTIN, SIGTTOU:
			p.State = StateStopped
			k.log.Info("stop", zap.Int("pid", p.PID), zap.Stringer("signal", sig))
			k.Schedule()
			return false
		default:
			k.exit(p, 128+int(sig))
			return false
		}
	}
}
