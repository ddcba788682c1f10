package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reaped struct {
	pid, code int
}

// forkWait forks a child that exits with code and then waits for it.
func forkWait(t *testing.T, code int, got *[]reaped) Task {
	return TaskFunc(func(ctx *Context) {
		r := ctx.Regs()
		switch r.EIP {
		case 0:
			r.EIP = 1
			_, err := ctx.Fork()
			require.NoError(t, err)
		case 1:
			if r.EAX == 0 {
				ctx.Exit(code)
				return
			}
			pid, status, err := ctx.Wait()
			if errors.Is(err, ErrBlocked) {
				return
			}
			require.NoError(t, err)
			*got = append(*got, reaped{pid, status})
			r.EIP = 2
		default:
			ctx.Pause()
		}
	})
}

func TestExitAndWait(t *testing.T) {
	k := newTestKernel(t, nil)
	var got []reaped
	a := spawn(t, k, forkWait(t, 3, &got))
	a.Counter = 20

	k.Schedule()
	k.Step() // fork
	childPID := int(a.TSS.EAX)
	child := k.procs.lookup(childPID)
	require.NotNil(t, child)

	k.Step() // wait blocks
	assert.Equal(t, StateInterruptible, a.State)
	assert.Equal(t, childPID, k.CurrentPID())

	child.Utime = 4
	k.Step() // child exits
	assert.Equal(t, StateZombie, child.State)
	assert.Equal(t, a.PID, k.CurrentPID())

	k.Step() // wait reaps
	assert.Equal(t, []reaped{{childPID, 3}}, got)
	assert.Equal(t, uint64(4), a.Cutime)
	_, ok := k.Lookup(childPID)
	assert.False(t, ok)
	_, ok = k.gdt.tss(tssSelector(child.Slot))
	assert.False(t, ok)
}

func TestWaitWithoutChildren(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	_, _, err := k.wait(&Context{k: k, p: a})
	assert.ErrorIs(t, err, ErrNoChild)
}

func TestExitReleasesResourcesAndReparents(t *testing.T) {
	k := newTestKernel(t, nil)
	initProc := spawn(t, k, spin)
	a := spawn(t, k, spin)
	pid, err := k.fork(a)
	require.NoError(t, err)
	grandchild := k.procs.lookup(pid)

	ctx := &Context{k: k, p: a}
	fd, err := ctx.Open("log")
	require.NoError(t, err)
	f, _ := ctx.File(fd)
	root := a.Root
	before := root.Count

	k.procs.get(0).State = StateRunnable
	k.current = a
	a.State = StateRunning
	k.exit(a, 1)

	assert.Equal(t, StateZombie, a.State)
	assert.Equal(t, 0, f.Count)
	assert.Nil(t, a.Files[fd])
	assert.Equal(t, before-2, root.Count, "pwd and root share an inode")
	assert.Equal(t, initProc.PID, grandchild.PPID)
	_, ok := k.Lookup(a.PID)
	assert.False(t, ok, "children of idle are released at once")
}

func TestExitOfInitReleasesZombieChildren(t *testing.T) {
	k := newTestKernel(t, nil)
	initProc := spawn(t, k, spin)
	require.Equal(t, initPID, initProc.PID)
	pid, err := k.fork(initProc)
	require.NoError(t, err)
	zombie := k.procs.lookup(pid)
	pid, err = k.fork(initProc)
	require.NoError(t, err)
	live := k.procs.lookup(pid)

	run := func(p *Proc) {
		if k.current.State == StateRunning {
			k.current.State = StateRunnable
		}
		k.current = p
		p.State = StateRunning
	}
	run(zombie)
	k.exit(zombie, 2)
	require.Equal(t, StateZombie, zombie.State)
	before := k.procs.live()

	run(initProc)
	k.exit(initProc, 0)

	_, ok := k.Lookup(zombie.PID)
	assert.False(t, ok, "zombie child of init is released")
	assert.Nil(t, k.procs.get(zombie.Slot))
	_, ok = k.gdt.tss(tssSelector(zombie.Slot))
	assert.False(t, ok)
	assert.Equal(t, 0, live.PPID)
	assert.Equal(t, before-2, k.procs.live(), "init and its zombie child")

	var slots []int
	for i := 0; i < 2; i++ {
		pid, err := k.fork(k.procs.get(0))
		require.NoError(t, err)
		slots = append(slots, k.procs.lookup(pid).Slot)
	}
	assert.Equal(t, []int{initProc.Slot, zombie.Slot}, slots, "both slots are reusable")
}

func TestExitOfIdleIsFatal(t *testing.T) {
	k := newTestKernel(t, nil)
	f := requireFault(t, func() { k.exit(k.procs.get(0), 0) })
	assert.Equal(t, "task[0] trying to exit", f.Info.Value)
}

func TestKill(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)

	assert.ErrorIs(t, k.Kill(a.PID, Signal(40)), ErrInvalidSignal)
	assert.ErrorIs(t, k.Kill(99, SIGTERM), ErrNoProcess)
	assert.ErrorIs(t, k.Kill(0, SIGTERM), ErrNoProcess)
	assert.NoError(t, k.Kill(a.PID, 0))
	assert.True(t, a.Signal.Empty())

	require.NoError(t, k.Kill(a.PID, SIGUSR2))
	assert.True(t, a.Signal.Has(SIGUSR2))
}

func TestStopAndContinue(t *testing.T) {
	k := newTestKernel(t, nil)
	steps := 0
	a := spawn(t, k, TaskFunc(func(*Context) { steps++ }))

	k.Schedule()
	require.NoError(t, k.Kill(a.PID, SIGSTOP))
	k.Step()
	assert.Equal(t, StateStopped, a.State)
	assert.Zero(t, steps)
	assert.Equal(t, 0, k.CurrentPID())

	k.Step()
	assert.Equal(t, 0, k.CurrentPID(), "stopped processes are not scheduled")

	require.NoError(t, k.Kill(a.PID, SIGCONT))
	assert.Equal(t, StateRunnable, a.State)
	k.Step()
	k.Step()
	assert.Equal(t, 1, steps)
	assert.True(t, a.Signal.Empty())
}

func TestBlockedSignalStaysPending(t *testing.T) {
	k := newTestKernel(t, nil)
	steps := 0
	a := spawn(t, k, TaskFunc(func(ctx *Context) {
		steps++
		ctx.SetBlocked(MakeSigSet(SIGTERM, SIGKILL))
	}))
	k.Schedule()
	k.Step()
	assert.True(t, a.Blocked.Has(SIGTERM))
	assert.False(t, a.Blocked.Has(SIGKILL))

	require.NoError(t, k.Kill(a.PID, SIGTERM))
	k.Step()
	assert.Equal(t, 2, steps)
	assert.True(t, a.Signal.Has(SIGTERM))

	require.NoError(t, k.Kill(a.PID, SIGKILL))
	k.Step()
	assert.Equal(t, StateZombie, a.State)
	assert.Equal(t, 128+int(SIGKILL), a.ExitCode)
}

func TestContextCalls(t *testing.T) {
	k := newTestKernel(t, nil)
	a := spawn(t, k, spin)
	ctx := &Context{k: k, p: a}

	ctx.Nice(20)
	assert.Equal(t, InitPriority, ctx.Priority())
	ctx.Nice(5)
	assert.Equal(t, 10, ctx.Priority())

	assert.Zero(t, ctx.Alarm(3))
	assert.Equal(t, uint64(3*DefaultHZ), a.Alarm)
	assert.Equal(t, 3, ctx.Alarm(0))
	assert.Zero(t, a.Alarm)

	for i := 0; i < NrOpen; i++ {
		_, err := ctx.Open("f")
		require.NoError(t, err)
	}
	_, err := ctx.Open("f")
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.NoError(t, ctx.Close(4))
	assert.ErrorIs(t, ctx.Close(4), ErrBadFD)
	assert.ErrorIs(t, ctx.Close(NrOpen), ErrBadFD)
	fd, err := ctx.Open("g")
	require.NoError(t, err)
	assert.Equal(t, 4, fd)

	ctx.Pause()
	ctx.Exit(1)
	assert.Equal(t, reqPause, ctx.req.kind, "first blocking request wins")
}
