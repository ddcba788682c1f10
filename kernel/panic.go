package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// PanicInfo describes a fatal kernel condition.
type PanicInfo struct {
	Slot    int
	PID     int
	Jiffies uint64
	Value   any
	Stack   []byte
}

// Fault is the value the kernel panics with. The machine loop recovers it.
type Fault struct {
	Info PanicInfo
}

func (f *Fault) Error() string {
	return fmt.Sprintf("kernel panic: %v (pid %d, slot %d, jiffies %d)",
		f.Info.Value, f.Info.PID, f.Info.Slot, f.Info.Jiffies)
}

// InPanicMode reports whether the kernel has panicked.
func (k *Kernel) InPanicMode() bool {
	return k.panicActive.Load()
}

// SetPanicHandler installs the handler run on the first panic. It must not
// panic.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	k.panicHandler = fn
}

// Panic halts the kernel: it reports the condition once and panics with a
// *Fault. It never returns.
func (k *Kernel) Panic(format string, args ...any) {
	info := PanicInfo{
		Jiffies: k.jiffies,
		Value:   fmt.Sprintf(format, args...),
	}
	if p := k.current; p != nil {
		info.Slot, info.PID = p.Slot, p.PID
	}
	k.triggerPanic(&info)
	panic(&Fault{Info: info})
}

func (k *Kernel) triggerPanic(info *PanicInfo) {
	k.panicOnce.Do(func() {
		k.panicActive.Store(true)
		info.Stack = captureStack()
		k.log.Error("kernel panic",
			zap.Any("value", info.Value),
			zap.Int("pid", info.PID),
			zap.Int("slot", info.Slot),
			zap.Uint64("jiffies", info.Jiffies))
		if fn := k.panicHandler; fn != nil {
			fn(*info)
		}
	})
}
