package kernel

import "strconv"

// Signal is a signal number in 1..NSIG.
type Signal uint8

// NSIG is the highest signal number.
const NSIG = 32

const (
	SIGHUP Signal = iota + 1
	SIGINT
	SIGQUIT
	SIGILL
	SIGTRAP
	SIGABRT
	SIGUNUSED
	SIGFPE
	SIGKILL
	SIGUSR1
	SIGSEGV
	SIGUSR2
	SIGPIPE
	SIGALRM
	SIGTERM
	SIGSTKFLT
	SIGCHLD
	SIGCONT
	SIGSTOP
	SIGTSTP
	SIGTTIN
	SIGTTOU
)

var signalNames = [...]string{
	SIGHUP: "SIGHUP", SIGINT: "SIGINT", SIGQUIT: "SIGQUIT", SIGILL: "SIGILL",
	SIGTRAP: "SIGTRAP", SIGABRT: "SIGABRT", SIGUNUSED: "SIGUNUSED", SIGFPE: "SIGFPE",
	SIGKILL: "SIGKILL", SIGUSR1: "SIGUSR1", SIGSEGV: "SIGSEGV", SIGUSR2: "SIGUSR2",
	SIGPIPE: "SIGPIPE", SIGALRM: "SIGALRM", SIGTERM: "SIGTERM", SIGSTKFLT: "SIGSTKFLT",
	SIGCHLD: "SIGCHLD", SIGCONT: "SIGCONT", SIGSTOP: "SIGSTOP", SIGTSTP: "SIGTSTP",
	SIGTTIN: "SIGTTIN", SIGTTOU: "SIGTTOU",
}

// Valid reports whether s is a deliverable signal number.
func (s Signal) Valid() bool { return s >= 1 && s <= NSIG }

func (s Signal) String() string {
	if int(s) < len(signalNames) && signalNames[s] != "" {
		return signalNames[s]
	}
	return "SIG" + strconv.Itoa(int(s))
}

// SigSet is a fixed-size set of signals.
type SigSet struct {
	bits uint32
}

// unblockable can never be masked.
var unblockable = MakeSigSet(SIGKILL, SIGSTOP)

// MakeSigSet returns a set holding sigs. Invalid numbers are ignored.
func MakeSigSet(sigs ...Signal) SigSet {
	var s SigSet
	for _, sig := range sigs {
		s.Add(sig)
	}
	return s
}

func sigBit(sig Signal) uint32 { return 1 << (sig - 1) }

func (s SigSet) Has(sig Signal) bool {
	return sig.Valid() && s.bits&sigBit(sig) != 0
}

func (s *SigSet) Add(sig Signal) {
	if sig.Valid() {
		s.bits |= sigBit(sig)
	}
}

func (s *SigSet) Del(sig Signal) {
	if sig.Valid() {
		s.bits &^= sigBit(sig)
	}
}

func (s SigSet) Empty() bool { return s.bits == 0 }

func (s SigSet) Union(o SigSet) SigSet { return SigSet{bits: s.bits | o.bits} }

func (s SigSet) Minus(o SigSet) SigSet { return SigSet{bits: s.bits &^ o.bits} }

// Blockable drops SIGKILL and SIGSTOP from s.
func (s SigSet) Blockable() SigSet { return s.Minus(unblockable) }

// Next returns the lowest-numbered signal in s.
func (s SigSet) Next() (Signal, bool) {
	if s.bits == 0 {
		return 0, false
	}
	for sig := Signal(1); sig <= NSIG; sig++ {
		if s.Has(sig) {
			return sig, true
		}
	}
	return 0, false
}

// Signals lists the members of s in ascending order.
func (s SigSet) Signals() []Signal {
	var out []Signal
	for sig := Signal(1); sig <= NSIG; sig++ {
		if s.Has(sig) {
			out = append(out, sig)
		}
	}
	return out
}

// Deliverable returns the pending signals that blocked does not mask.
func Deliverable(pending, blocked SigSet) SigSet {
	return pending.Minus(blocked.Blockable())
}
