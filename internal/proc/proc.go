// Package proc implements the process table and lifecycle state machine:
// a fixed-slot registry of process records, priority-based next-pick, and
// sleep/wake by monotonic timer.
package proc

import (
	"errors"
	"fmt"

	"github.com/arctir/kerneld/internal/heap"
	"github.com/arctir/kerneld/internal/mem"
)

// MaxProcesses is the fixed size of the process table.
const MaxProcesses = 32

// StackSize is the number of bytes allocated for each process's stack.
const StackSize = 8192

// maxNameLen is the longest process name kept in full; longer names are
// truncated.
const maxNameLen = 31

// contextWords is the number of zeroed general-purpose register slots
// reserved below the saved PC/RA on a freshly created stack, covering
// every general-purpose register except x0 and ra (x2-x31).
const contextWords = 30

// ErrTableFull is returned by Create when no UNUSED slot is available.
var ErrTableFull = errors.New("proc: process table full")

// ErrStackAlloc is returned by Create when the heap cannot satisfy the
// stack allocation; the table is left unchanged.
var ErrStackAlloc = errors.New("proc: failed to allocate stack")

// ErrNotFound is returned when a lookup by pid fails.
var ErrNotFound = errors.New("proc: no such process")

// State is one of a process record's lifecycle states.
type State int

const (
	Unused State = iota
	Ready
	Running
	Sleeping
	Waiting
	Zombie
)

// String renders the state as the shell's `ps` verb and process-listing
// diagnostics print it.
func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Sleeping:
		return "SLEEPING"
	case Waiting:
		return "WAITING"
	case Zombie:
		return "ZOMBIE"
	default:
		return "UNKNOWN"
	}
}

// Entry is the function a process begins executing at creation. In this
// simulation "execution" means cooperative invocation from the scheduler
// rather than a true machine-mode jump (see internal/sched).
type Entry func(p *Process)

// Process is a single schedulable unit.
type Process struct {
	PID         int
	Name        string
	State       State
	Priority    int
	StackBase   uint64
	StackTop    uint64
	SP          uint64
	Entry       Entry
	WakeAt      uint64
	ExitStatus  int
}

// Table is the fixed-slot process registry. It owns every process's
// stack memory via the allocator it was constructed with.
type Table struct {
	slots   [MaxProcesses]Process
	nextPID int
	current int // slot index of the RUNNING process, or -1
	alloc   *heap.Allocator
}

// NewTable returns an empty, fully-UNUSED process table backed by alloc
// for stack allocation.
func NewTable(alloc *heap.Allocator) *Table {
	return &Table{nextPID: 1, current: -1, alloc: alloc}
}

// Create finds the first UNUSED slot, assigns a fresh pid, allocates a
// stack, builds an initial saved context, and transitions the new record
// to READY. On failure the table is left unchanged.
func (t *Table) Create(name string, entry Entry, priority int) (int, error) {
	slot := -1
	for i := range t.slots {
		if t.slots[i].State == Unused {
			slot = i
			break
		}
	}
	if slot == -1 {
		return -1, ErrTableFull
	}

	pid := t.nextPID

	stackBase, ok := t.alloc.Alloc(StackSize)
	if !ok {
		return -1, ErrStackAlloc
	}
	t.nextPID++

	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	stackTop := stackBase + StackSize
	// Reserve room for a saved PC, a zeroed RA, and contextWords of
	// general-purpose register slots.
	sp := stackTop - 8 - 8 - contextWords*8

	t.slots[slot] = Process{
		PID:       pid,
		Name:      name,
		State:     Ready,
		Priority:  priority,
		StackBase: stackBase,
		StackTop:  stackTop,
		SP:        sp,
		Entry:     entry,
		WakeAt:    0,
	}

	return pid, nil
}

// ByPID scans the table for a non-UNUSED record with the given pid.
func (t *Table) ByPID(pid int) (*Process, bool) {
	for i := range t.slots {
		if t.slots[i].PID == pid && t.slots[i].State != Unused {
			return &t.slots[i], true
		}
	}
	return nil, false
}

// Current returns the RUNNING record, or nil if none is running.
func (t *Table) Current() *Process {
	if t.current < 0 {
		return nil
	}
	return &t.slots[t.current]
}

// SetRunning transitions the record at pid from READY to RUNNING. It
// returns an error if the pid does not exist. At most one process may be
// RUNNING at a time; setting a new current process first demotes the
// prior one back to READY unless it has already transitioned away on its
// own (e.g. to SLEEPING or ZOMBIE).
func (t *Table) SetRunning(pid int) error {
	for i := range t.slots {
		if t.slots[i].PID == pid && t.slots[i].State != Unused {
			if t.current >= 0 && t.slots[t.current].State == Running {
				t.slots[t.current].State = Ready
			}
			t.slots[i].State = Running
			t.current = i
			return nil
		}
	}
	return fmt.Errorf("%w: pid %d", ErrNotFound, pid)
}

// Sleep transitions the current RUNNING process to SLEEPING until m's
// monotonic timer reaches now+ticks.
func (t *Table) Sleep(m *mem.Memory, ticks uint64) {
	if t.current < 0 {
		return
	}
	p := &t.slots[t.current]
	p.State = Sleeping
	p.WakeAt = m.MTime() + ticks
	t.current = -1
}

// WakeSweep transitions every SLEEPING record whose WakeAt has arrived
// back to READY. Called on every timer interrupt before the scheduler
// picks a successor.
func (t *Table) WakeSweep(m *mem.Memory) {
	now := m.MTime()
	for i := range t.slots {
		if t.slots[i].State == Sleeping && t.slots[i].WakeAt <= now {
			t.slots[i].State = Ready
		}
	}
}

// Exit transitions the current RUNNING process to ZOMBIE, releases its
// stack, and clears StackBase to 0. It returns the exiting process's
// pid, or 0 if no process was running.
func (t *Table) Exit(status int) int {
	if t.current < 0 {
		return 0
	}
	p := &t.slots[t.current]
	p.ExitStatus = status
	p.State = Zombie
	if p.StackBase != 0 {
		t.alloc.Free(p.StackBase)
		p.StackBase = 0
	}
	pid := p.PID
	t.current = -1
	return pid
}

// PickNext selects the READY record with the highest priority, breaking
// ties by first match in slot order. It returns nil if no process is
// READY.
func (t *Table) PickNext() *Process {
	var best *Process
	for i := range t.slots {
		if t.slots[i].State != Ready {
			continue
		}
		if best == nil || t.slots[i].Priority > best.Priority {
			best = &t.slots[i]
		}
	}
	return best
}

// Snapshot returns every non-UNUSED record, for the `ps` shell verb and
// for tests. The returned slice is a copy; mutating it has no effect on
// the table.
func (t *Table) Snapshot() []Process {
	out := make([]Process, 0, MaxProcesses)
	for i := range t.slots {
		if t.slots[i].State != Unused {
			out = append(out, t.slots[i])
		}
	}
	return out
}
