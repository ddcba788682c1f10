// Package mm manages process address spaces for the kernel.
//
// Every slot owns a fixed 64 MiB linear window. A fresh space maps the
// initial data segment with private frames; a forked space shares its
// parent's frames read-only and only pays for its own page tables and
// control page, so fork cost does not depend on the size of the parent.
package mm

import (
	"errors"
	"fmt"

	"minikern/kernel"
)

const (
	PageSize = 4096

	// tableSpan is the linear range covered by one page table.
	tableSpan = 1024 * PageSize

	// InitLimit is the data segment limit of the first process.
	InitLimit = 640 * 1024
)

// ErrNoMemory reports that the frame budget is exhausted.
var ErrNoMemory = errors.New("mm: out of memory")

type frame struct {
	refs int
}

// Space is one process's address space.
type Space struct {
	base   uint32
	limit  uint32
	tables int
	frames []*frame

	released bool
}

func (s *Space) Base() uint32  { return s.base }
func (s *Space) Limit() uint32 { return s.limit }

// Manager hands out page frames from a fixed budget.
type Manager struct {
	total int
	free  int
}

// New returns a manager owning pages frames.
func New(pages int) *Manager {
	return &Manager{total: pages, free: pages}
}

// Free returns the number of unallocated frames.
func (m *Manager) Free() int { return m.free }

// Total returns the frame budget.
func (m *Manager) Total() int { return m.total }

func tablesFor(limit uint32) int {
	return int((uint64(limit) + tableSpan - 1) / tableSpan)
}

func (m *Manager) take(n int) error {
	if n > m.free {
		return fmt.Errorf("%w: need %d frames, %d free", ErrNoMemory, n, m.free)
	}
	m.free -= n
	return nil
}

// Copy implements kernel.Memory. A nil src builds the initial space for
// slot; otherwise src's frames are shared with the new space.
func (m *Manager) Copy(src kernel.AddressSpace, slot int) (kernel.AddressSpace, error) {
	base := uint32(slot) * kernel.TaskSize
	if src == nil {
		pages := InitLimit / PageSize
		tables := tablesFor(InitLimit)
		if err := m.take(1 + tables + pages); err != nil {
			return nil, err
		}
		s := &Space{base: base, limit: InitLimit, tables: tables, frames: make([]*frame, pages)}
		for i := range s.frames {
			s.frames[i] = &frame{refs: 1}
		}
		return s, nil
	}

	parent, ok := src.(*Space)
	if !ok {
		return nil, fmt.Errorf("mm: foreign address space %T", src)
	}
	tables := tablesFor(parent.limit)
	if err := m.take(1 + tables); err != nil {
		return nil, err
	}
	s := &Space{base: base, limit: parent.limit, tables: tables, frames: make([]*frame, len(parent.frames))}
	for i, f := range parent.frames {
		f.refs++
		s.frames[i] = f
	}
	return s, nil
}

// Release implements kernel.Memory. Frames return to the budget when their
// last mapping goes away.
func (m *Manager) Release(as kernel.AddressSpace) {
	s, ok := as.(*Space)
	if !ok || s == nil || s.released {
		return
	}
	s.released = true
	m.free += 1 + s.tables
	for _, f := range s.frames {
		f.refs--
		if f.refs == 0 {
			m.free++
		}
	}
	s.frames = nil
	s.tables = 0
}

// Shared returns how many of s's frames are also mapped elsewhere.
func (s *Space) Shared() int {
	n := 0
	for _, f := range s.frames {
		if f.refs > 1 {
			n++
		}
	}
	return n
}
