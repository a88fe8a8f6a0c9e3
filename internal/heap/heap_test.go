package heap

import (
	"testing"

	"github.com/arctir/kerneld/internal/mem"
)

// newTestHeap returns an allocator over a fresh heap window of exactly
// size bytes.
func newTestHeap(size uint64) (*Allocator, uint64) {
	m := mem.New(size)
	return Init(m), m.HeapStart
}

func TestAllocatorReusesFreedBlock(t *testing.T) {
	a, _ := newTestHeap(0x10000)

	addrA, ok := a.Alloc(100)
	if !ok {
		t.Fatal("alloc(100) failed")
	}
	_, ok = a.Alloc(200)
	if !ok {
		t.Fatal("alloc(200) failed")
	}
	a.Free(addrA)

	addrC, ok := a.Alloc(50)
	if !ok {
		t.Fatal("alloc(50) failed")
	}
	if addrC != addrA {
		t.Fatalf("expected reuse of freed block: got %#x, want %#x", addrC, addrA)
	}
}

func TestAllocatorConservation(t *testing.T) {
	size := uint64(0x10000)
	a, _ := newTestHeap(size)

	var addrs []uint64
	for _, n := range []uint64{100, 200, 37, 4096} {
		addr, ok := a.Alloc(n)
		if !ok {
			t.Fatalf("alloc(%d) failed", n)
		}
		addrs = append(addrs, addr)
	}
	for _, addr := range addrs {
		a.Free(addr)
	}

	stats := a.Stats()
	if stats.TotalHeap != size {
		t.Errorf("TotalHeap = %d, want %d", stats.TotalHeap, size)
	}
	if stats.Blocks != 1 {
		t.Errorf("after freeing everything, expected 1 coalesced block, got %d", stats.Blocks)
	}
	if stats.Allocated != 0 {
		t.Errorf("Allocated = %d, want 0", stats.Allocated)
	}
}

func TestAllocatorNoAdjacentFreeBlocks(t *testing.T) {
	a, _ := newTestHeap(0x10000)

	addrA, _ := a.Alloc(64)
	addrB, _ := a.Alloc(64)
	addrC, _ := a.Alloc(64)

	a.Free(addrA)
	a.Free(addrC)
	a.Free(addrB) // middle free should coalesce both neighbors into one block

	stats := a.Stats()
	if stats.Blocks != 1 {
		t.Errorf("expected full coalesce into 1 block, got %d blocks", stats.Blocks)
	}
}

func TestAllocatorAlignment(t *testing.T) {
	a, _ := newTestHeap(0x10000)

	addr, ok := a.Alloc(13)
	if !ok {
		t.Fatal("alloc(13) failed")
	}
	if addr%8 != 0 {
		t.Errorf("returned address %#x is not 8-byte aligned", addr)
	}
}

func TestAllocatorSplitsWhenRemainderExceedsGuard(t *testing.T) {
	// A fresh heap of exactly HeaderSize+200 bytes.
	a, _ := newTestHeap(HeaderSize + 200)

	addr, ok := a.Alloc(64)
	if !ok {
		t.Fatal("alloc(64) failed")
	}
	h := a.read(addr - HeaderSize)
	// residue = 200 - 64 = 136; with this allocator's HeaderSize (24),
	// 136 > HeaderSize+64 (88), so a split DOES occur and size stays 64.
	if h.size != 64 {
		t.Errorf("size = %d, want 64 (split expected with HeaderSize=%d)", h.size, HeaderSize)
	}
}

func TestAllocatorZeroSizeReturnsFalse(t *testing.T) {
	a, _ := newTestHeap(0x1000)
	if _, ok := a.Alloc(0); ok {
		t.Error("alloc(0) should fail")
	}
}

func TestAllocatorOutOfMemoryReturnsFalse(t *testing.T) {
	a, _ := newTestHeap(128)
	if _, ok := a.Alloc(10000); ok {
		t.Error("alloc of more than the heap holds should fail")
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	a, _ := newTestHeap(0x1000)
	a.Free(0) // must not panic
}
