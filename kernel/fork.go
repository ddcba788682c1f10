package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

func (k *Kernel) fork(parent *Proc) (int, error) {
	slot := k.procs.freeSlot()
	if slot < 0 {
		return 0, fmt.Errorf("fork: no free slot: %w", ErrNoResources)
	}
	pid, ok := k.procs.nextPID()
	if !ok {
		return 0, fmt.Errorf("fork: no free pid: %w", ErrNoResources)
	}

	child := *parent
	child.Slot = slot
	child.PID = pid
	child.PPID = parent.PID
	child.State = StateUninterruptible
	child.Counter = parent.Priority
	child.Signal = SigSet{}
	child.Alarm = 0
	child.Leader = false
	child.ExitCode = 0
	child.Utime, child.Stime = 0, 0
	child.Cutime, child.Cstime = 0, 0
	child.StartTime = k.jiffies
	child.sleep = nil
	child.task = cloneTask(parent.task)
	child.childWait = k.NewWaitQueue(fmt.Sprintf("wait:%d", pid))

	child.TSS.BackLink = 0
	child.TSS.ESP0 = kernelStack(slot)
	child.TSS.SS0 = kernelDS
	child.TSS.EAX = 0
	child.TSS.LDT = ldtSelector(slot)
	child.TSS.TraceBitmap = traceBitmapOff

	k.procs.put(slot, &child)

	space, err := k.mem.Copy(parent.Space, slot)
	if err != nil {
		k.procs.release(slot)
		k.log.Warn("fork: copy address space failed",
			zap.Int("pid", parent.PID), zap.Int("slot", slot), zap.Error(err))
		return 0, fmt.Errorf("fork: copy address space: %w: %w", ErrNoResources, err)
	}
	child.Space = space
	child.LDT = ldtFor(space)

	for _, f := range child.Files {
		if f != nil {
			f.get()
		}
	}
	iget(child.Pwd)
	iget(child.Root)
	iget(child.Executable)

	k.gdt.setTSS(slot, &child.TSS)
	k.gdt.setLDT(slot, child.LDT)

	child.State = StateRunnable
	parent.TSS.EAX = uint32(pid)

	k.log.Info("fork",
		zap.Int("parent", parent.PID),
		zap.Int("pid", pid),
		zap.Int("slot", slot),
		zap.Uint64("jiffies", k.jiffies))
	return pid, nil
}
