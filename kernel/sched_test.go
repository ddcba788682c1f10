package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRefillScenario(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.NrTasks = 4 })
	a := spawn(t, k, spin)
	b := spawn(t, k, spin)
	a.Priority, a.Counter = 10, 10
	b.Priority, b.Counter = 5, 0

	k.Schedule()
	require.Equal(t, a.PID, k.CurrentPID())
	assert.Equal(t, 10, a.Counter)

	for i := 0; i < 9; i++ {
		k.Tick(ModeUser)
		require.Equal(t, a.PID, k.CurrentPID())
	}
	k.Tick(ModeUser)
	assert.Equal(t, a.PID, k.CurrentPID())
	assert.Equal(t, 10, a.Counter)
	assert.Equal(t, 5, b.Counter)

	for i := 0; i < 10; i++ {
		k.Tick(ModeUser)
	}
	assert.Equal(t, a.PID, k.CurrentPID())
	assert.Equal(t, 10, a.Counter)
	assert.Equal(t, 7, b.Counter)
}

func TestScheduleTieGoesToLowestSlot(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	b := spawn(t, k, spin)
	require.Equal(t, a.Counter, b.Counter)

	k.Schedule()
	assert.Equal(t, a.PID, k.CurrentPID())
	assert.Equal(t, StateRunning, a.State)
	assert.Equal(t, StateRunnable, b.State)
	assert.Equal(t, StateRunnable, k.procs.get(0).State)
	assert.Equal(t, uint64(1), k.Switches())
}

func TestScheduleIdleWhenNothingRunnable(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	a.State = StateUninterruptible

	k.Schedule()
	assert.Equal(t, 0, k.CurrentPID())
	assert.Equal(t, []int{0}, running(k))
	assert.Zero(t, k.Switches())
}

func TestScheduleRefillWithoutCreditIsFatal(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	a.Priority, a.Counter = 0, 0

	f := requireFault(t, k.Schedule)
	assert.Contains(t, f.Info.Value, "refill")
}

func TestTickKernelModeDoesNotPreempt(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	b := spawn(t, k, spin)
	k.Schedule()
	a.Counter = 1

	k.Tick(ModeKernel)
	assert.Equal(t, a.PID, k.CurrentPID())
	assert.Zero(t, a.Counter)
	assert.Equal(t, uint64(1), a.Stime)
	assert.Zero(t, a.Utime)

	k.Tick(ModeKernel)
	assert.Zero(t, a.Counter, "counter never goes negative")

	k.Tick(ModeUser)
	assert.Equal(t, b.PID, k.CurrentPID())
	assert.Equal(t, uint64(1), a.Utime)
	assert.Equal(t, uint64(3), k.Jiffies())
}

func TestTickReentryIsFatal(t *testing.T) {
	k := newTestKernel(t, nil)
	k.AddTimer(1, func() { k.Tick(ModeKernel) })

	f := requireFault(t, func() { k.Tick(ModeKernel) })
	assert.Contains(t, f.Info.Value, "re-entered")
	assert.False(t, k.inTick)
}

func TestAlarmRaisesSignalAfterDeadline(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, TaskFunc(func(ctx *Context) {
		ctx.Alarm(1)
		ctx.Pause()
	}))

	k.Schedule()
	k.Step()
	require.Equal(t, StateInterruptible, a.State)
	require.Equal(t, uint64(DefaultHZ), a.Alarm)

	for k.Jiffies() < DefaultHZ {
		k.Tick(ModeUser)
	}
	assert.Equal(t, StateInterruptible, a.State, "alarm compares strictly")
	assert.False(t, a.Signal.Has(SIGALRM))

	k.Tick(ModeUser)
	assert.Equal(t, a.PID, k.CurrentPID())
	assert.True(t, a.Signal.Has(SIGALRM))
	assert.Zero(t, a.Alarm)

	k.Step()
	_, ok := k.Lookup(a.PID)
	assert.False(t, ok, "default SIGALRM action terminates")
	assert.Equal(t, 128+int(SIGALRM), a.ExitCode)
	assert.Equal(t, 0, k.CurrentPID())
}
