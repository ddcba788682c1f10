package kernel

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// WakePolicy selects how a wait queue hands out wakeups.
type WakePolicy uint8

const (
	// WakeFIFO keeps every waiter in arrival order and wakes the oldest.
	WakeFIFO WakePolicy = iota
	// WakeLegacy keeps only the most recent waiter at the head; each sleeper
	// remembers the waiter it displaced and wakes it when it resumes.
	WakeLegacy
)

func (w WakePolicy) String() string {
	switch w {
	case WakeFIFO:
		return "fifo"
	case WakeLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseWakePolicy maps "fifo" and "legacy" to a policy.
func ParseWakePolicy(s string) (WakePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fifo":
		return WakeFIFO, nil
	case "legacy":
		return WakeLegacy, nil
	default:
		return 0, fmt.Errorf("unknown wake policy %q", s)
	}
}

// WaitQueue is the set of processes blocked on one resource. The resource
// owns its queue; processes are named by PID, never linked to each other.
type WaitQueue struct {
	name   string
	policy WakePolicy

	waiters []int // fifo
	head    int   // legacy
}

// sleeper records why a process blocked so the epilogue can run when it is
// dispatched again.
type sleeper struct {
	q             *WaitQueue
	interruptible bool
	prev          int
}

// NewWaitQueue returns an empty queue using the kernel's wake policy.
func (k *Kernel) NewWaitQueue(name string) *WaitQueue {
	return &WaitQueue{name: name, policy: k.cfg.WakePolicy}
}

func (q *WaitQueue) Name() string { return q.name }

// Len returns the number of processes the queue currently names.
func (q *WaitQueue) Len() int {
	if q.policy == WakeLegacy {
		if q.head == 0 {
			return 0
		}
		return 1
	}
	return len(q.waiters)
}

func (q *WaitQueue) remove(pid int) {
	for i, w := range q.waiters {
		if w == pid {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return
		}
	}
}

// Waiters lists the PIDs blocked on q in the order they will be woken.
func (k *Kernel) Waiters(q *WaitQueue) []int {
	if q.policy != WakeLegacy {
		return append([]int(nil), q.waiters...)
	}
	var out []int
	for pid := q.head; pid != 0; {
		out = append(out, pid)
		p := k.procs.lookup(pid)
		if p == nil || p.sleep == nil || p.sleep.q != q {
			break
		}
		pid = p.sleep.prev
	}
	return out
}

func (k *Kernel) sleepOn(p *Proc, q *WaitQueue, interruptible bool) {
	if p.Slot == 0 {
		k.Panic("task[0] trying to sleep")
	}
	if q == nil {
		k.Panic("sleep_on: nil queue")
	}
	s := &sleeper{q: q, interruptible: interruptible}
	if q.policy == WakeLegacy {
		s.prev = q.head
		q.head = p.PID
	} else {
		q.waiters = append(q.waiters, p.PID)
	}
	p.sleep = s
	if interruptible {
		p.State = StateInterruptible
	} else {
		p.State = StateUninterruptible
	}
	k.log.Debug("sleep",
		zap.Int("pid", p.PID),
		zap.String("queue", q.Name()),
		zap.Bool("interruptible", interruptible))
	k.Schedule()
}

// pause blocks p interruptibly on nothing; only a signal wakes it. The idle
// process never blocks and just reschedules.
func (k *Kernel) pause(p *Proc) {
	if p.Slot != 0 {
		p.sleep = &sleeper{interruptible: true}
		p.State = StateInterruptible
	}
	k.Schedule()
}

// resume runs the sleep epilogue of p. It reports false when p went back to
// sleep and must not run its task this step.
func (k *Kernel) resume(p *Proc) bool {
	s := p.sleep
	p.sleep = nil
	q := s.q
	if q == nil {
		return true
	}
	if q.policy != WakeLegacy {
		q.remove(p.PID)
		return true
	}
	if s.interruptible {
		if q.head != 0 && q.head != p.PID {
			k.wakePID(q.head)
			p.sleep = s
			p.State = StateInterruptible
			k.Schedule()
			return false
		}
		q.head = 0
	}
	if s.prev != 0 {
		k.wakePID(s.prev)
	}
	return true
}

func (k *Kernel) wakePID(pid int) bool {
	p := k.procs.lookup(pid)
	if p == nil || !p.sleeping() {
		return false
	}
	p.State = StateRunnable
	return true
}

// WakeUp makes one waiter of q runnable: the oldest under WakeFIFO, the head
// under WakeLegacy (clearing it). It reports whether a process was woken.
func (k *Kernel) WakeUp(q *WaitQueue) bool {
	if q == nil {
		k.Panic("wake_up: nil queue")
	}
	if q.policy == WakeLegacy {
		if q.head == 0 {
			return false
		}
		pid := q.head
		q.head = 0
		return k.wakePID(pid)
	}
	for len(q.waiters) > 0 {
		pid := q.waiters[0]
		q.waiters = q.waiters[1:]
		p := k.procs.lookup(pid)
		if p == nil || p.sleep == nil || p.sleep.q != q || !p.sleeping() {
			continue
		}
		p.State = StateRunnable
		return true
	}
	return false
}

// WakeAll wakes every waiter of q and returns how many were woken. Under
// WakeLegacy only the head is woken directly; the rest follow as each
// resumed sleeper wakes the one it displaced.
func (k *Kernel) WakeAll(q *WaitQueue) int {
	n := 0
	for k.WakeUp(q) {
		n++
	}
	return n
}
