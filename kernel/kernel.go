package kernel

import (
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	DefaultNrTasks      = 64
	DefaultTimeRequests = 64
	DefaultHZ           = 100
)

// Config sizes the kernel and names its collaborators.
type Config struct {
	// NrTasks is the process table capacity, idle slot included.
	NrTasks int
	// TimeRequests is the size of the one-shot timer pool.
	TimeRequests int
	// HZ is the tick frequency; alarms are expressed in seconds of HZ ticks.
	HZ int
	// MaxPID is the largest identifier handed out before wrapping to 1.
	MaxPID int
	// WakePolicy selects wait queue semantics.
	WakePolicy WakePolicy

	Logger *zap.Logger
	Memory Memory
	// Idle is the program of process 0. It defaults to a pause loop.
	Idle Task
}

// DefaultConfig returns the reference sizing: 64 slots, 64 timers, 100 Hz.
func DefaultConfig() Config {
	return Config{
		NrTasks:      DefaultNrTasks,
		TimeRequests: DefaultTimeRequests,
		HZ:           DefaultHZ,
		MaxPID:       math.MaxInt32,
		WakePolicy:   WakeFIFO,
	}
}

// Kernel is the process core: table, scheduler, wait queues and timers.
//
// A Kernel is owned by a single machine loop that delivers ticks and runs
// task steps; interrupts are therefore only taken between steps. It is not
// safe for concurrent use.
type Kernel struct {
	cfg Config
	log *zap.Logger
	mem Memory

	procs  *table
	gdt    *gdt
	timers *timerList

	current  *Proc
	jiffies  uint64
	switches uint64

	inTick     bool
	inSchedule bool

	panicActive  atomic.Bool
	panicOnce    sync.Once
	panicHandler func(PanicInfo)
}

// New boots a kernel with the idle process installed in slot 0 and running.
func New(cfg Config) *Kernel {
	def := DefaultConfig()
	if cfg.NrTasks < 2 {
		cfg.NrTasks = def.NrTasks
	}
	if cfg.NrTasks > MaxNrTasks {
		cfg.NrTasks = MaxNrTasks
	}
	if cfg.TimeRequests <= 0 {
		cfg.TimeRequests = def.TimeRequests
	}
	if cfg.HZ <= 0 {
		cfg.HZ = def.HZ
	}
	if cfg.MaxPID <= 0 {
		cfg.MaxPID = def.MaxPID
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Memory == nil {
		cfg.Memory = flatMemory{}
	}
	if cfg.Idle == nil {
		cfg.Idle = TaskFunc(idleLoop)
	}

	k := &Kernel{
		cfg:    cfg,
		log:    cfg.Logger,
		mem:    cfg.Memory,
		procs:  newTable(cfg.NrTasks, cfg.MaxPID),
		gdt:    newGDT(cfg.NrTasks),
		timers: newTimerList(cfg.TimeRequests),
	}

	root := &Inode{Num: 1, Name: "/", Count: 2}
	idle := &Proc{
		Slot:     0,
		Name:     "idle",
		State:    StateRunning,
		Counter:  InitPriority,
		Priority: InitPriority,
		Pwd:      root,
		Root:     root,
		task:     cfg.Idle,
	}
	idle.childWait = k.NewWaitQueue("wait:0")
	idle.TSS = TSS{
		Regs: Regs{CS: userCS, DS: userDS, ES: userDS, FS: userDS, GS: userDS, SS: userDS},
		ESP0: kernelStack(0),
		SS0:  kernelDS,
		LDT:  ldtSelector(0),
	}

	space, err := k.mem.Copy(nil, 0)
	if err != nil {
		k.Panic("boot: no address space for task[0]: %v", err)
	}
	idle.Space = space
	idle.LDT = ldtFor(space)

	k.procs.put(0, idle)
	k.gdt.setTSS(0, &idle.TSS)
	k.gdt.setLDT(0, idle.LDT)
	k.current = idle
	return k
}

// idleLoop is process 0's default program: pause forever, which for the
// idle process just looks for other work.
func idleLoop(ctx *Context) { ctx.Pause() }

// Config returns the effective configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Jiffies returns the number of ticks since boot.
func (k *Kernel) Jiffies() uint64 { return k.jiffies }

// Switches returns the number of context switches performed.
func (k *Kernel) Switches() uint64 { return k.switches }

// CurrentPID returns the identifier of the running process.
func (k *Kernel) CurrentPID() int { return k.current.PID }

// Step dispatches the current process for one step of its program: it
// finishes an interrupted sleep, delivers pending signals, runs the task and
// then applies whatever blocking request the task made.
func (k *Kernel) Step() {
	p := k.current
	if p.sleep != nil && !k.resume(p) {
		return
	}
	if p.Slot != 0 && !k.deliverSignals(p) {
		return
	}
	ctx := &Context{k: k, p: p}
	if p.task == nil {
		ctx.Pause()
	} else {
		p.task.Step(ctx)
	}
	k.finish(ctx)
}
