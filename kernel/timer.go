package kernel

import "go.uber.org/zap"

const noTimer = -1

type timerRequest struct {
	delta int64
	fn    func()
	next  int
	used  bool
}

// timerList is a fixed pool of one-shot requests chained by index in
// deadline order. Each entry stores the ticks remaining after its
// predecessor fires, so only the head is decremented on a tick.
type timerList struct {
	pool []timerRequest
	head int
}

func newTimerList(n int) *timerList {
	return &timerList{pool: make([]timerRequest, n), head: noTimer}
}

func (t *timerList) alloc() int {
	for i := range t.pool {
		if !t.pool[i].used {
			return i
		}
	}
	return noTimer
}

// AddTimer runs fn once after delay ticks. A delay of zero or less runs fn
// before AddTimer returns. Timers with equal deadlines fire in the order
// they were added.
func (k *Kernel) AddTimer(delay int64, fn func()) {
	if fn == nil {
		return
	}
	if delay <= 0 {
		fn()
		return
	}
	t := k.timers
	i := t.alloc()
	if i == noTimer {
		k.Panic("add_timer: no more time requests free")
	}

	prev, cur := noTimer, t.head
	for cur != noTimer && t.pool[cur].delta <= delay {
		delay -= t.pool[cur].delta
		prev, cur = cur, t.pool[cur].next
	}
	t.pool[i] = timerRequest{delta: delay, fn: fn, next: cur, used: true}
	if prev == noTimer {
		t.head = i
	} else {
		t.pool[prev].next = i
	}
	if cur != noTimer {
		t.pool[cur].delta -= delay
		if t.pool[cur].delta < 0 {
			k.Panic("add_timer: negative delta %d", t.pool[cur].delta)
		}
	}
}

// runTimers advances the head by one tick and fires everything now due.
// Entries are unlinked before their callback runs so a callback may re-arm.
func (k *Kernel) runTimers() {
	t := k.timers
	if t.head == noTimer {
		return
	}
	t.pool[t.head].delta--
	for t.head != noTimer && t.pool[t.head].delta <= 0 {
		r := &t.pool[t.head]
		fn := r.fn
		t.head = r.next
		*r = timerRequest{next: noTimer}
		fn()
	}
}

// PendingTimers returns the delta of every queued timer in firing order.
func (k *Kernel) PendingTimers() []int64 {
	var out []int64
	t := k.timers
	for i := t.head; i != noTimer; i = t.pool[i].next {
		out = append(out, t.pool[i].delta)
	}
	return out
}

// Tick is the timer interrupt. mode is the privilege level the tick
// interrupted: the running process is charged user or system time, and its
// slice only ends in a reschedule when it was interrupted in user mode.
func (k *Kernel) Tick(mode Mode) {
	if k.inTick {
		k.Panic("timer interrupt re-entered")
	}
	k.inTick = true
	defer func() { k.inTick = false }()

	k.jiffies++
	p := k.current
	if mode == ModeUser {
		p.Utime++
	} else {
		p.Stime++
	}

	k.runTimers()

	if p.Counter > 0 {
		p.Counter--
	}
	if p.Counter > 0 {
		return
	}
	if mode != ModeUser {
		return
	}
	if ce := k.log.Check(zap.DebugLevel, "slice expired"); ce != nil {
		ce.Write(zap.Int("pid", p.PID), zap.Uint64("jiffies", k.jiffies))
	}
	k.Schedule()
}
