package kernel

// table is the fixed-capacity process table. Slot 0 always holds the idle
// process; the remaining slots are handed out by fork.
type table struct {
	slots   []*Proc
	lastPID int
	maxPID  int
}

func newTable(n, maxPID int) *table {
	return &table{slots: make([]*Proc, n), maxPID: maxPID}
}

func (t *table) len() int { return len(t.slots) }

func (t *table) get(slot int) *Proc {
	if slot < 0 || slot >= len(t.slots) {
		return nil
	}
	return t.slots[slot]
}

func (t *table) put(slot int, p *Proc) { t.slots[slot] = p }

func (t *table) release(slot int) { t.slots[slot] = nil }

// freeSlot returns the lowest empty non-idle slot, or -1.
func (t *table) freeSlot() int {
	for i := 1; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			return i
		}
	}
	return -1
}

func (t *table) lookup(pid int) *Proc {
	for _, p := range t.slots {
		if p != nil && p.PID == pid {
			return p
		}
	}
	return nil
}

// nextPID advances past lastPID to the next identifier not held by a live
// process, wrapping to 1 after maxPID. lastPID only moves on success.
func (t *table) nextPID() (int, bool) {
	pid := t.lastPID
	for i := 0; i < t.maxPID; i++ {
		pid++
		if pid <= 0 || pid > t.maxPID {
			pid = 1
		}
		if t.lookup(pid) == nil {
			t.lastPID = pid
			return pid, true
		}
	}
	return 0, false
}

// each calls fn for every live process except idle, in slot order.
func (t *table) each(fn func(*Proc)) {
	for i := 1; i < len(t.slots); i++ {
		if p := t.slots[i]; p != nil {
			fn(p)
		}
	}
}

func (t *table) live() int {
	n := 0
	for _, p := range t.slots {
		if p != nil {
			n++
		}
	}
	return n
}
