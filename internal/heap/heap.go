// Package heap implements the split-block, coalescing free-list
// allocator over a window of simulated memory. It is the one place raw
// addresses are manipulated outside of internal/mem.
//
// The heap is a singly-linked, address-ordered list of block headers,
// served first-fit, with a fixed +64 byte split guard: a free block is
// only split into two when the remainder would still be large enough to
// be independently useful.
package heap

import (
	"errors"

	"github.com/arctir/kerneld/internal/mem"
)

// ErrOutOfMemory is the typed form of an allocation failure, for callers
// that want an error instead of Alloc's null-pointer convention; Alloc
// itself never panics on failure, it just returns false.
var ErrOutOfMemory = errors.New("heap: out of memory")

// HeaderSize is the size, in bytes, of the metadata prefixing every block:
// an 8-byte free flag, an 8-byte payload size, and an 8-byte address of
// the next block in address order (0 meaning "no next block").
const HeaderSize = 24

const splitGuard = 64

// Stats is a point-in-time snapshot of allocator accounting, used by the
// `mem` shell verb and by property tests asserting that allocated+free
// always accounts for the whole heap.
type Stats struct {
	TotalHeap uint64
	Allocated uint64
	Free      uint64
	Blocks    int
}

// Allocator is the first-fit, split/coalesce allocator over a fixed
// window of an internal/mem.Memory.
type Allocator struct {
	m    *mem.Memory
	head uint64
}

// Init writes the first free-block header across the whole of m's heap
// window and returns an Allocator ready to serve Alloc/Free.
func Init(m *mem.Memory) *Allocator {
	start := align8(m.HeapStart)
	h := header{
		free: true,
		size: m.HeapEnd - start - HeaderSize,
		next: 0,
	}
	a := &Allocator{m: m, head: start}
	a.write(start, h)
	return a
}

// Alloc reserves n bytes and returns the payload address, or (0, false) if
// no block is large enough. It never panics and never triggers compaction;
// coalescing only happens incrementally, in Free.
func (a *Allocator) Alloc(n uint64) (uint64, bool) {
	if n == 0 {
		return 0, false
	}
	rounded := align8(n)

	addr := a.head
	for addr != 0 {
		h := a.read(addr)
		if h.free && h.size >= rounded {
			h.free = false
			if h.size > rounded+HeaderSize+splitGuard {
				newAddr := addr + HeaderSize + rounded
				newHdr := header{
					free: true,
					size: h.size - rounded - HeaderSize,
					next: h.next,
				}
				a.write(newAddr, newHdr)
				h.next = newAddr
				h.size = rounded
			}
			a.write(addr, h)
			return addr + HeaderSize, true
		}
		addr = h.next
	}
	return 0, false
}

// Free releases the block at payload address p. Freeing the zero address
// is a no-op. Freeing an address that was not returned by Alloc, or
// freeing the same address twice, is a programming error with undefined
// behavior.
func (a *Allocator) Free(p uint64) {
	if p == 0 {
		return
	}
	addr := p - HeaderSize
	h := a.read(addr)
	h.free = true
	a.write(addr, h)

	// Forward coalesce: absorb the immediate successor if it is free.
	if h.next != 0 {
		next := a.read(h.next)
		if next.free {
			h.size += HeaderSize + next.size
			h.next = next.next
			a.write(addr, h)
		}
	}

	// Backward coalesce: find the predecessor whose next points at addr.
	// This scan runs after the forward step above; since the forward step
	// only ever removes h.next's old header from the list (it never moves
	// addr itself), the predecessor found here is still correct regardless
	// of whether the scan happened before or after forward coalescing.
	prevAddr := a.head
	for prevAddr != 0 {
		prev := a.read(prevAddr)
		if prev.next == addr {
			if prev.free {
				cur := a.read(addr)
				prev.size += HeaderSize + cur.size
				prev.next = cur.next
				a.write(prevAddr, prev)
			}
			break
		}
		prevAddr = prev.next
	}
}

// Stats walks the block list and reports current accounting totals.
func (a *Allocator) Stats() Stats {
	s := Stats{}
	addr := a.head
	for addr != 0 {
		h := a.read(addr)
		s.TotalHeap += h.size + HeaderSize
		s.Blocks++
		if h.free {
			s.Free += h.size + HeaderSize
		} else {
			s.Allocated += h.size + HeaderSize
		}
		addr = h.next
	}
	return s
}

// header is the per-block metadata stored at the start of every block.
type header struct {
	free bool
	size uint64
	next uint64
}

func (a *Allocator) read(addr uint64) header {
	freeWord := a.m.ReadU64(addr)
	size := a.m.ReadU64(addr + 8)
	next := a.m.ReadU64(addr + 16)
	return header{free: freeWord != 0, size: size, next: next}
}

func (a *Allocator) write(addr uint64, h header) {
	freeWord := uint64(0)
	if h.free {
		freeWord = 1
	}
	a.m.WriteU64(addr, freeWord)
	a.m.WriteU64(addr+8, h.size)
	a.m.WriteU64(addr+16, h.next)
}

// align8 rounds n up to the next multiple of 8.
func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}
