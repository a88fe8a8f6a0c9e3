// Package syscall implements the numbered system-call table: argument
// unpacking from the trap frame, dispatch to the owning subsystem, and
// result writeback.
//
// Eight syscall numbers are defined, each with a fixed argument-slot and
// return-value convention. Where a syscall takes a raw `char*`/`void*`
// argument, this package dereferences the equivalent address through
// internal/mem, since WRITE/READ/EXEC/OPEN's buffers and filenames are
// simulated memory contents rather than Go values.
package syscall

import (
	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/files"
	"github.com/arctir/kerneld/internal/mem"
	"github.com/arctir/kerneld/internal/proc"
	"github.com/arctir/kerneld/internal/trap"
)

// Syscall numbers.
const (
	Exit   = 1
	Write  = 2
	Read   = 3
	Sleep  = 4
	Getpid = 5
	Exec   = 6
	Open   = 7
	Close  = 8
)

// msToTicks converts milliseconds to timer ticks, assuming a 100MHz
// simulated clock.
const msToTicks = 100000

// Table dispatches trap-frame syscalls against the process table, file
// table, console, and memory window of a single kernel instance.
type Table struct {
	procs *proc.Table
	files *files.Table
	con   *console.Console
	mem   *mem.Memory

	// OnYield runs after EXIT has reclaimed a process's stack or after
	// SLEEP has parked it, handing control back to the scheduler.
	OnYield func()
}

// New returns a Table wired to the given subsystems.
func New(procs *proc.Table, f *files.Table, con *console.Console, m *mem.Memory) *Table {
	return &Table{procs: procs, files: f, con: con, mem: m}
}

// Handle unpacks f's syscall number and arguments, dispatches, and
// writes the result back to slot a0. It is invoked by internal/trap on
// an ecall exception.
func (t *Table) Handle(f *trap.Frame) {
	num := f.Regs[trap.RegA7]
	a0 := f.Regs[trap.RegA0]
	a1 := f.Regs[trap.RegA1]
	a2 := f.Regs[trap.RegA2]

	var result uint64
	switch num {
	case Exit:
		t.doExit(int(int64(a0)))
	case Write:
		result = uint64(t.doWrite(int(a0), a1, a2))
	case Read:
		result = uint64(t.doRead(int(a0), a1, a2))
	case Sleep:
		t.doSleep(a0)
	case Getpid:
		result = uint64(t.doGetpid())
	case Exec:
		result = uint64(int64(t.doExec(a0)))
	case Open:
		result = uint64(t.doOpen(a0))
	case Close:
		result = 0 // no handle bookkeeping to release; accepted and ignored
	default:
		t.con.WriteString("Unknown syscall: ")
		t.con.WriteHex(num)
		t.con.WriteString("\n")
		result = ^uint64(0) // -1
	}

	f.Regs[trap.RegA0] = result
}

// Exit calls the same exit handling doExit's trap-dispatched path uses,
// for callers (the shell, init) that are conceptually user-mode code
// issuing a syscall without going through a trap frame.
func (t *Table) Exit(status int) {
	t.doExit(status)
}

// Write implements WRITE for callers invoking it directly rather than
// through a trap frame.
func (t *Table) Write(fd int, data []byte) int {
	if fd != 1 {
		return 0
	}
	for _, b := range data {
		t.con.PutByte(b)
	}
	return len(data)
}

// SleepMillis implements SLEEP for callers invoking it directly rather
// than through a trap frame.
func (t *Table) SleepMillis(ms uint64) {
	t.doSleep(ms)
}

// GetPid implements GETPID for callers invoking it directly rather than
// through a trap frame.
func (t *Table) GetPid() int {
	return t.doGetpid()
}

// ExecByName implements EXEC for callers invoking it directly with a
// filename, instead of an in-memory C-string address.
func (t *Table) ExecByName(filename string) int {
	h, ok := t.files.Open(filename)
	if !ok {
		t.con.WriteString("Cannot open: ")
		t.con.WriteString(filename)
		t.con.WriteString("\n")
		return -1
	}
	data, _ := t.files.Read(h)
	t.con.WriteString("Executing: ")
	t.con.WriteString(filename)
	t.con.WriteString(" (")
	t.con.WriteDec(int64(len(data)))
	t.con.WriteString(" bytes)\n")
	t.con.WriteString("Program executed successfully\n")
	return 0
}

func (t *Table) doExit(status int) {
	p := t.procs.Current()
	if p == nil {
		return
	}
	t.con.WriteString("[KERNEL] Process ")
	t.con.WriteDec(int64(p.PID))
	t.con.WriteString(" (")
	t.con.WriteString(p.Name)
	t.con.WriteString(") exited with status ")
	t.con.WriteDec(int64(status))
	t.con.WriteString("\n")

	t.procs.Exit(status)
	if t.OnYield != nil {
		t.OnYield()
	}
}

// doWrite implements SYS_WRITE: fd==1 (stdout) writes len bytes from the
// buffer at address buf through the console; any other fd is a no-op
// that reports zero bytes written.
func (t *Table) doWrite(fd int, buf, length uint64) int {
	if fd != 1 {
		return 0
	}
	data := t.mem.ReadBytes(buf, length)
	for _, b := range data {
		t.con.PutByte(b)
	}
	return int(length)
}

// doRead implements SYS_READ: fd==0 (stdin) fills the buffer at buf with
// console input up to length bytes, stopping early (and including) the
// first newline.
func (t *Table) doRead(fd int, buf, length uint64) int {
	if fd != 0 {
		return 0
	}
	out := make([]byte, 0, length)
	n := 0
	for i := uint64(0); i < length; i++ {
		b, ok := t.con.GetByte()
		if !ok {
			break
		}
		out = append(out, b)
		n++
		if b == '\n' {
			break
		}
	}
	t.mem.WriteBytes(buf, out)
	return n
}

func (t *Table) doSleep(ms uint64) {
	t.procs.Sleep(t.mem, ms*msToTicks)
	if t.OnYield != nil {
		t.OnYield()
	}
}

func (t *Table) doGetpid() int {
	p := t.procs.Current()
	if p == nil {
		return 0
	}
	return p.PID
}

// doExec is a stub: it reports the size of the named file and claims
// success without loading or running it.
func (t *Table) doExec(filenameAddr uint64) int {
	filename := string(t.mem.ReadCString(filenameAddr))
	return t.ExecByName(filename)
}

// doOpen implements SYS_OPEN as an existence check: it returns 1 if the
// named file exists and 0 if not. It does not return a handle.
func (t *Table) doOpen(filenameAddr uint64) int {
	filename := string(t.mem.ReadCString(filenameAddr))
	_, ok := t.files.Open(filename)
	if !ok {
		return 0
	}
	// The handle itself is opaque (internal/files.Handle); callers that
	// need it again re-resolve by name through files.Table.Open. This
	// syscall reports success/failure only.
	return 1
}
