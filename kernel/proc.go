package kernel

const (
	// NrOpen is the size of the per-process descriptor table.
	NrOpen = 20

	// PageSize is the size of one kernel stack page.
	PageSize = 4096

	// InitPriority is the counter and priority of the idle process; forked
	// processes inherit it until they call Nice.
	InitPriority = 15
)

// Segment selectors loaded into a fresh execution context.
const (
	kernelDS uint16 = 0x10
	userCS   uint16 = 0x0f
	userDS   uint16 = 0x17

	kernelStackBase uint32 = 0x00800000
	traceBitmapOff  uint32 = 0x80000000
)

// State is the lifecycle state of a process.
type State uint8

const (
	StateRunnable State = iota
	StateRunning
	StateInterruptible
	StateUninterruptible
	StateZombie
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateInterruptible:
		return "interruptible"
	case StateUninterruptible:
		return "uninterruptible"
	case StateZombie:
		return "zombie"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Mode is the privilege level a tick interrupted.
type Mode uint8

const (
	ModeKernel Mode = iota
	ModeUser
)

func (m Mode) String() string {
	if m == ModeUser {
		return "user"
	}
	return "kernel"
}

// Regs is the general register file saved across a context switch.
type Regs struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	EIP, EFLAGS        uint32

	CS, DS, ES, FS, GS, SS uint16
}

// TSS is the saved hardware execution context of one process.
type TSS struct {
	Regs

	BackLink    uint16
	ESP0        uint32
	SS0         uint16
	LDT         uint16
	TraceBitmap uint32
}

// Segment is one local descriptor: a linear base and a byte limit.
type Segment struct {
	Base  uint32
	Limit uint32
}

// LDT holds the code and data descriptors of a process.
type LDT struct {
	Code Segment
	Data Segment
}

// Task is the user-mode program of a process.
//
// Step runs the program until it makes a blocking call or gives the CPU back.
// Blocking calls on the Context take effect after Step returns, so they must
// be the last thing a step does.
type Task interface {
	Step(*Context)
}

// TaskFunc adapts a plain function to a Task.
type TaskFunc func(*Context)

func (f TaskFunc) Step(ctx *Context) { f(ctx) }

// Cloner is implemented by tasks holding private state that must not be
// shared between parent and child after fork.
type Cloner interface {
	Clone() Task
}

// SignalHandler is implemented by tasks that catch signals. Returning false
// applies the default action.
type SignalHandler interface {
	HandleSignal(ctx *Context, sig Signal) bool
}

// Proc is a process control block.
type Proc struct {
	Slot int
	PID  int
	PPID int
	Name string

	State    State
	Counter  int
	Priority int

	Signal  SigSet
	Blocked SigSet
	Alarm   uint64

	Utime, Stime   uint64
	Cutime, Cstime uint64
	StartTime      uint64

	Leader   bool
	ExitCode int

	TSS TSS
	LDT LDT

	Files      [NrOpen]*File
	Pwd        *Inode
	Root       *Inode
	Executable *Inode

	Space AddressSpace

	task      Task
	sleep     *sleeper
	childWait *WaitQueue
}

func (p *Proc) runnable() bool {
	return p.State == StateRunnable || p.State == StateRunning
}

func (p *Proc) sleeping() bool {
	return p.State == StateInterruptible || p.State == StateUninterruptible
}

func tssSelector(slot int) uint16 { return uint16(slot<<4) + firstTSSEntry<<3 }
func ldtSelector(slot int) uint16 { return uint16(slot<<4) + firstLDTEntry<<3 }

func kernelStack(slot int) uint32 {
	return kernelStackBase + uint32(slot+1)*PageSize
}

func cloneTask(t Task) Task {
	if c, ok := t.(Cloner); ok {
		return c.Clone()
	}
	return t
}
