package kernel

import "fmt"

type requestKind uint8

const (
	reqNone requestKind = iota
	reqSleep
	reqSleepInterruptible
	reqPause
	reqExit
)

type request struct {
	kind requestKind
	q    *WaitQueue
	code int
}

// Context provides process-local access to kernel operations for the
// duration of one task step.
type Context struct {
	k   *Kernel
	p   *Proc
	req request
}

// block records a blocking request. The first request of a step wins.
func (c *Context) block(r request) {
	if c.req.kind == reqNone {
		c.req = r
	}
}

// finish applies the blocking request recorded during a step.
func (k *Kernel) finish(c *Context) {
	r := c.req
	c.req = request{}
	switch r.kind {
	case reqSleep:
		k.sleepOn(c.p, r.q, false)
	case reqSleepInterruptible:
		k.sleepOn(c.p, r.q, true)
	case reqPause:
		k.pause(c.p)
	case reqExit:
		k.exit(c.p, r.code)
	}
}

// Kernel returns the kernel the process runs on.
func (c *Context) Kernel() *Kernel { return c.k }

// PID returns the caller's process identifier.
func (c *Context) PID() int { return c.p.PID }

// PPID returns the parent's process identifier.
func (c *Context) PPID() int { return c.p.PPID }

// Regs returns the caller's saved registers. Tasks keep their program
// counter in EIP and their scratch state in the general registers.
func (c *Context) Regs() *Regs { return &c.p.TSS.Regs }

// Jiffies returns the ticks since boot.
func (c *Context) Jiffies() uint64 { return c.k.jiffies }

func (c *Context) Priority() int { return c.p.Priority }

func (c *Context) Counter() int { return c.p.Counter }

// Fork duplicates the caller. The child resumes with the same registers
// except EAX, which is 0 in the child and the child's PID in the parent.
func (c *Context) Fork() (int, error) {
	return c.k.fork(c.p)
}

// Exec replaces the caller's program and name. The new task starts at EIP 0
// on the next dispatch.
func (c *Context) Exec(name string, t Task) {
	r := &c.p.TSS.Regs
	*r = Regs{CS: r.CS, DS: r.DS, ES: r.ES, FS: r.FS, GS: r.GS, SS: r.SS, ESP: r.ESP}
	c.p.task = t
	c.p.Name = name
}

// Exit terminates the caller with code once the step returns.
func (c *Context) Exit(code int) {
	c.block(request{kind: reqExit, code: code})
}

// Wait reaps one zombie child and returns its PID and exit code. When
// children exist but none has exited, the caller sleeps and Wait returns
// ErrBlocked; the task should retry on its next dispatch.
func (c *Context) Wait() (int, int, error) {
	return c.k.wait(c)
}

// Kill raises sig on the process pid.
func (c *Context) Kill(pid int, sig Signal) error {
	return c.k.Kill(pid, sig)
}

// Pause sleeps until a signal arrives.
func (c *Context) Pause() {
	c.block(request{kind: reqPause})
}

// Sleep blocks on q until it is woken.
func (c *Context) Sleep(q *WaitQueue) {
	c.block(request{kind: reqSleep, q: q})
}

// SleepInterruptible blocks on q until it is woken or a signal arrives.
func (c *Context) SleepInterruptible(q *WaitQueue) {
	c.block(request{kind: reqSleepInterruptible, q: q})
}

// Alarm schedules SIGALRM after seconds (0 cancels) and returns the
// seconds that remained on the previous alarm.
func (c *Context) Alarm(seconds int) int {
	k, p := c.k, c.p
	old := 0
	if p.Alarm > k.jiffies {
		old = int((p.Alarm - k.jiffies) / uint64(k.cfg.HZ))
	}
	if seconds > 0 {
		p.Alarm = k.jiffies + uint64(seconds)*uint64(k.cfg.HZ)
	} else {
		p.Alarm = 0
	}
	return old
}

// Nice lowers the caller's priority by inc as long as it stays positive.
func (c *Context) Nice(inc int) {
	if c.p.Priority-inc > 0 {
		c.p.Priority -= inc
	}
}

// Signals returns the caller's pending signals.
func (c *Context) Signals() SigSet { return c.p.Signal }

// SetBlocked replaces the caller's blocked mask. SIGKILL and SIGSTOP cannot
// be blocked.
func (c *Context) SetBlocked(s SigSet) {
	c.p.Blocked = s.Blockable()
}

// Open opens name on the lowest free descriptor.
func (c *Context) Open(name string) (int, error) {
	for fd, f := range c.p.Files {
		if f == nil {
			c.p.Files[fd] = &File{Name: name, Count: 1}
			return fd, nil
		}
	}
	return -1, ErrTooManyFiles
}

// Close releases descriptor fd.
func (c *Context) Close(fd int) error {
	if fd < 0 || fd >= NrOpen || c.p.Files[fd] == nil {
		return fmt.Errorf("close %d: %w", fd, ErrBadFD)
	}
	c.p.Files[fd].put()
	c.p.Files[fd] = nil
	return nil
}

// File returns the open file behind fd.
func (c *Context) File(fd int) (*File, bool) {
	if fd < 0 || fd >= NrOpen || c.p.Files[fd] == nil {
		return nil, false
	}
	return c.p.Files[fd], true
}
