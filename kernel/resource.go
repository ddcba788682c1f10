package kernel

// File is an open file shared by every descriptor that refers to it.
type File struct {
	Name  string
	Pos   int64
	Count int
}

func (f *File) get() { f.Count++ }

func (f *File) put() {
	if f.Count > 0 {
		f.Count--
	}
}

// Inode is an in-core inode reference (working directory, root, image).
type Inode struct {
	Num   int
	Name  string
	Count int
}

func iget(i *Inode) {
	if i != nil {
		i.Count++
	}
}

func iput(i *Inode) {
	if i != nil && i.Count > 0 {
		i.Count--
	}
}

// AddressSpace is the opaque mapping handle of a process.
type AddressSpace interface {
	Base() uint32
	Limit() uint32
}

// Memory duplicates and releases address spaces. Copy with a nil source
// creates the initial mapping for slot.
type Memory interface {
	Copy(src AddressSpace, slot int) (AddressSpace, error)
	Release(AddressSpace)
}

// TaskSize is the linear address range reserved for each slot.
const TaskSize = 0x4000000

type flatSpace struct {
	base, limit uint32
}

func (s flatSpace) Base() uint32  { return s.base }
func (s flatSpace) Limit() uint32 { return s.limit }

// flatMemory hands every slot its fixed linear window and never fails.
type flatMemory struct{}

func (flatMemory) Copy(src AddressSpace, slot int) (AddressSpace, error) {
	limit := uint32(640 * 1024)
	if src != nil {
		limit = src.Limit()
	}
	return flatSpace{base: uint32(slot) * TaskSize, limit: limit}, nil
}

func (flatMemory) Release(AddressSpace) {}

func ldtFor(s AddressSpace) LDT {
	if s == nil {
		return LDT{}
	}
	seg := Segment{Base: s.Base(), Limit: s.Limit()}
	return LDT{Code: seg, Data: seg}
}
