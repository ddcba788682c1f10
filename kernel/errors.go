package kernel

import "errors"

var (
	// ErrNoResources reports that fork found no free slot, PID or memory.
	ErrNoResources = errors.New("kernel: no resources")
	// ErrNoChild reports a wait by a process without children.
	ErrNoChild = errors.New("kernel: no child processes")
	// ErrNoProcess reports a signal sent to a PID that is not live.
	ErrNoProcess = errors.New("kernel: no such process")
	// ErrInvalidSignal reports a signal number outside 1..NSIG.
	ErrInvalidSignal = errors.New("kernel: invalid signal")
	// ErrBlocked is returned by a call that put the caller to sleep. The
	// task should end its step and retry the call when it is dispatched.
	ErrBlocked = errors.New("kernel: call blocked")
	// ErrTooManyFiles reports a full descriptor table.
	ErrTooManyFiles = errors.New("kernel: too many open files")
	// ErrBadFD reports a descriptor that is out of range or not open.
	ErrBadFD = errors.New("kernel: bad file descriptor")
)
