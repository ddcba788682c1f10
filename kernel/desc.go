package kernel

// Descriptor table layout: null, kernel code, kernel data, syscall, then a
// TSS/LDT pair per slot.
const (
	firstTSSEntry = 4
	firstLDTEntry = 5
)

// MaxNrTasks is the largest table whose TSS and LDT selectors still fit in
// 16 bits.
const MaxNrTasks = (0x10000 - firstTSSEntry<<3) >> 4

type descriptor struct {
	present bool
	tss     *TSS
	ldt     LDT
}

// gdt maps a process slot's TSS and LDT selectors to its execution context.
// Switching to a slot without an installed TSS is fatal.
type gdt struct {
	entries []descriptor
}

func newGDT(nrTasks int) *gdt {
	return &gdt{entries: make([]descriptor, firstTSSEntry+2*nrTasks)}
}

func (g *gdt) setTSS(slot int, tss *TSS) {
	g.entries[tssSelector(slot)>>3] = descriptor{present: true, tss: tss}
}

func (g *gdt) setLDT(slot int, ldt LDT) {
	g.entries[ldtSelector(slot)>>3] = descriptor{present: true, ldt: ldt}
}

func (g *gdt) clear(slot int) {
	g.entries[tssSelector(slot)>>3] = descriptor{}
	g.entries[ldtSelector(slot)>>3] = descriptor{}
}

func (g *gdt) tss(sel uint16) (*TSS, bool) {
	i := int(sel >> 3)
	if i < 0 || i >= len(g.entries) || !g.entries[i].present || g.entries[i].tss == nil {
		return nil, false
	}
	return g.entries[i].tss, true
}

func (g *gdt) ldt(sel uint16) (LDT, bool) {
	i := int(sel >> 3)
	if i < 0 || i >= len(g.entries) || !g.entries[i].present {
		return LDT{}, false
	}
	return g.entries[i].ldt, true
}
