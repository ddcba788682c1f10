package kernel

import "go.uber.org/zap"

// Schedule picks the next process to run and switches to it.
//
// Expired alarms raise SIGALRM first, and interruptible sleepers with a
// deliverable signal become runnable. The runnable process with the most
// credit wins, ties going to the lowest slot. When every runnable process is
// out of credit, all processes are refilled with counter/2 + priority and
// the selection is retried. With nothing runnable the idle process runs.
func (k *Kernel) Schedule() {
	if k.inSchedule {
		k.Panic("schedule: re-entered")
	}
	k.inSchedule = true
	defer func() { k.inSchedule = false }()

	k.sweep()
	k.switchTo(k.pick())
}

func (k *Kernel) sweep() {
	k.procs.each(func(p *Proc) {
		if p.Alarm != 0 && p.Alarm < k.jiffies {
			p.Signal.Add(SIGALRM)
			p.Alarm = 0
		}
		if p.State == StateInterruptible && !Deliverable(p.Signal, p.Blocked).Empty() {
			p.State = StateRunnable
		}
	})
}

func (k *Kernel) pick() *Proc {
	for refilled := false; ; refilled = true {
		var next *Proc
		c := -1
		k.procs.each(func(p *Proc) {
			if p.runnable() && p.Counter > c {
				c, next = p.Counter, p
			}
		})
		if next == nil {
			return k.procs.get(0)
		}
		if c > 0 {
			return next
		}
		if refilled {
			k.Panic("schedule: no runnable credit after refill")
		}
		k.procs.each(func(p *Proc) {
			p.Counter = p.Counter>>1 + p.Priority
		})
	}
}

func (k *Kernel) switchTo(next *Proc) {
	prev := k.current
	if next == prev {
		if next.State == StateRunnable {
			next.State = StateRunning
		}
		return
	}
	tss, ok := k.gdt.tss(tssSelector(next.Slot))
	if !ok || tss != &next.TSS {
		k.Panic("switch_to: no TSS installed for slot %d", next.Slot)
	}
	if ldt, ok := k.gdt.ldt(next.TSS.LDT); !ok || ldt != next.LDT {
		k.Panic("switch_to: no LDT installed for slot %d", next.Slot)
	}
	if prev.State == StateRunning {
		prev.State = StateRunnable
	}
	next.State = StateRunning
	k.current = next
	k.switches++
	k.log.Debug("switch",
		zap.Int("from", prev.PID),
		zap.Int("to", next.PID),
		zap.Int("counter", next.Counter),
		zap.Uint64("jiffies", k.jiffies))
}
