package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForkSymmetry(t *testing.T) {
	k := newTestKernel(t, nil)
	var childPID int
	a := spawn(t, k, TaskFunc(func(ctx *Context) {
		r := ctx.Regs()
		r.EBX = 42
		r.EIP = 7
		_, err := ctx.Open("tty")
		require.NoError(t, err)
		childPID, err = ctx.Fork()
		require.NoError(t, err)
	}))
	root := a.Root
	before := root.Count

	k.Schedule()
	k.Step()

	child := k.procs.lookup(childPID)
	require.NotNil(t, child)
	assert.Equal(t, uint32(0), child.TSS.EAX)
	assert.Equal(t, uint32(childPID), a.TSS.EAX)
	assert.Equal(t, a.TSS.EBX, child.TSS.EBX)
	assert.Equal(t, a.TSS.EIP, child.TSS.EIP)

	assert.Equal(t, a.PID, child.PPID)
	assert.Equal(t, StateRunnable, child.State)
	assert.Equal(t, a.Priority, child.Counter)
	assert.True(t, child.Signal.Empty())
	assert.Zero(t, child.Utime)
	assert.Equal(t, k.Jiffies(), child.StartTime)
	assert.Equal(t, kernelStack(child.Slot), child.TSS.ESP0)
	assert.Equal(t, ldtSelector(child.Slot), child.TSS.LDT)
	assert.Equal(t, uint32(child.Slot)*TaskSize, child.LDT.Code.Base)

	require.NotNil(t, child.Files[0])
	assert.Same(t, a.Files[0], child.Files[0])
	assert.Equal(t, 2, child.Files[0].Count)
	assert.Equal(t, before+2, root.Count, "pwd and root share an inode")

	tss, ok := k.gdt.tss(tssSelector(child.Slot))
	require.True(t, ok)
	assert.Same(t, &child.TSS, tss)
}

func TestForkFullTableConsumesNoPID(t *testing.T) {
	k := newTestKernel(t, func(c *Config) { c.NrTasks = 4 })
	for i := 0; i < 3; i++ {
		spawn(t, k, spin)
	}

	_, err := k.fork(k.procs.get(0))
	require.ErrorIs(t, err, ErrNoResources)
	assert.Equal(t, 3, k.procs.lastPID)
	assert.Len(t, k.Processes(), 4)
}

func TestForkPIDWrapsAndSkipsLive(t *testing.T) {
	k := newTestKernel(t, func(c *Config) {
		c.NrTasks = 8
		c.MaxPID = 3
	})
	var procs []*Proc
	for i := 0; i < 3; i++ {
		procs = append(procs, spawn(t, k, spin))
	}
	k.release(procs[1])

	p := spawn(t, k, spin)
	assert.Equal(t, 2, p.PID)
	assert.Equal(t, 2, p.Slot)

	_, err := k.fork(k.procs.get(0))
	require.ErrorIs(t, err, ErrNoResources)
	assert.Len(t, k.Processes(), 4)
}

var errNoFrames = errors.New("no frames")

type flakyMemory struct {
	flatMemory
	fail bool
}

func (m *flakyMemory) Copy(src AddressSpace, slot int) (AddressSpace, error) {
	if m.fail {
		return nil, errNoFrames
	}
	return m.flatMemory.Copy(src, slot)
}

func TestForkRollsBackOnMemoryFailure(t *testing.T) {
	mem := &flakyMemory{}
	k := newTestKernel(t, func(c *Config) { c.Memory = mem })
	mem.fail = true

	_, err := k.fork(k.procs.get(0))
	require.ErrorIs(t, err, ErrNoResources)
	require.ErrorIs(t, err, errNoFrames)
	assert.Nil(t, k.procs.get(1))
	_, ok := k.gdt.tss(tssSelector(1))
	assert.False(t, ok)
}

type tally struct{ n int }

func (c *tally) Step(*Context) { c.n++ }

func (c *tally) Clone() Task { return &tally{n: c.n} }

func TestForkClonesPrivateTaskState(t *testing.T) {
	k := newTestKernel(t, nil)
	orig := &tally{n: 3}
	a := spawn(t, k, orig)

	pid, err := k.fork(a)
	require.NoError(t, err)
	child := k.procs.lookup(pid)

	clone, ok := child.task.(*tally)
	require.True(t, ok)
	assert.NotSame(t, orig, clone)
	assert.Equal(t, 3, clone.n)

	shared := spawn(t, k, spin)
	pid, err = k.fork(shared)
	require.NoError(t, err)
	assert.NotNil(t, k.procs.lookup(pid).task)
}

func TestExecResetsProgram(t *testing.T) {
	k := newTestKernel(t, nil)
	next := &tally{}
	a := spawn(t, k, TaskFunc(func(ctx *Context) {
		ctx.Regs().EIP = 9
		ctx.Regs().EAX = 5
		ctx.Exec("next", next)
	}))

	k.Schedule()
	k.Step()
	assert.Zero(t, a.TSS.EIP)
	assert.Zero(t, a.TSS.EAX)
	assert.Equal(t, userCS, a.TSS.CS)
	assert.Equal(t, "next", a.Name)

	k.Step()
	assert.Equal(t, 1, next.n)
}
