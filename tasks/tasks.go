// Package tasks holds the user programs run by the simulated machine.
//
// Programs are register machines: EIP is the program counter and the
// general registers hold all state that must survive a fork, because a
// forked child shares its parent's task value and only gets a copy of the
// registers. Every blocking call is the last thing a step does.
package tasks

import (
	"fmt"
	"sort"

	"minikern/kernel"
)

// Spec describes a group of identical processes started by init.
type Spec struct {
	Name     string
	Program  string
	Priority int
	Count    int
	Arg      int
}

// Env carries the shared resources programs may block on.
type Env struct {
	// Pulse is woken by a periodic kernel timer.
	Pulse *kernel.WaitQueue
}

// Factory builds a program instance.
type Factory func(arg int, env Env) kernel.Task

var registry = map[string]Factory{
	"spin":    func(arg int, _ Env) kernel.Task { return Spin{Steps: arg} },
	"sleeper": func(arg int, env Env) kernel.Task { return Sleeper{Queue: env.Pulse, Wakeups: arg} },
	"alarm":   func(arg int, _ Env) kernel.Task { return Alarm{Seconds: arg} },
	"forker":  func(arg int, _ Env) kernel.Task { return Forker{Work: arg} },
}

// Lookup returns the factory registered for program.
func Lookup(program string) (Factory, bool) {
	f, ok := registry[program]
	return f, ok
}

// Programs lists the registered program names.
func Programs() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build resolves every spec into one Instance per process.
func Build(specs []Spec, env Env) ([]Instance, error) {
	var out []Instance
	for _, s := range specs {
		f, ok := Lookup(s.Program)
		if !ok {
			return nil, fmt.Errorf("task %q: unknown program %q", s.Name, s.Program)
		}
		n := s.Count
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			out = append(out, Instance{Name: s.Name, Priority: s.Priority, Task: f(s.Arg, env)})
		}
	}
	return out, nil
}
