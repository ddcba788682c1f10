package kernel

import (
	"fmt"
	"io"
)

// ProcInfo is a snapshot of one process table entry.
type ProcInfo struct {
	Slot     int
	PID      int
	PPID     int
	Name     string
	State    State
	Counter  int
	Priority int
	Signal   SigSet
	Alarm    uint64
	Utime    uint64
	Stime    uint64
	Start    uint64
	Current  bool
	Regs     Regs
}

func (k *Kernel) info(p *Proc) ProcInfo {
	return ProcInfo{
		Slot:     p.Slot,
		PID:      p.PID,
		PPID:     p.PPID,
		Name:     p.Name,
		State:    p.State,
		Counter:  p.Counter,
		Priority: p.Priority,
		Signal:   p.Signal,
		Alarm:    p.Alarm,
		Utime:    p.Utime,
		Stime:    p.Stime,
		Start:    p.StartTime,
		Current:  p == k.current,
		Regs:     p.TSS.Regs,
	}
}

// Processes returns every live process, idle included, in slot order.
func (k *Kernel) Processes() []ProcInfo {
	out := make([]ProcInfo, 0, k.procs.live())
	for i := 0; i < k.procs.len(); i++ {
		if p := k.procs.get(i); p != nil {
			out = append(out, k.info(p))
		}
	}
	return out
}

// Lookup returns the process with the given PID.
func (k *Kernel) Lookup(pid int) (ProcInfo, bool) {
	p := k.procs.lookup(pid)
	if p == nil {
		return ProcInfo{}, false
	}
	return k.info(p), true
}

// ShowStat writes one line per live process.
func (k *Kernel) ShowStat(w io.Writer) error {
	for _, pi := range k.Processes() {
		if _, err := fmt.Fprintf(w, "%d: pid=%d, state=%s, counter=%d, priority=%d\n",
			pi.Slot, pi.PID, pi.State, pi.Counter, pi.Priority); err != nil {
			return err
		}
	}
	return nil
}
