package syscall

import (
	"bytes"
	"testing"

	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/files"
	"github.com/arctir/kerneld/internal/heap"
	"github.com/arctir/kerneld/internal/mem"
	"github.com/arctir/kerneld/internal/proc"
	"github.com/arctir/kerneld/internal/trap"
)

func newTestTable(t *testing.T) (*Table, *proc.Table, *mem.Memory, *bytes.Buffer) {
	t.Helper()
	m := mem.New(1 << 20)
	a := heap.Init(m)
	procs := proc.NewTable(a)
	f := files.New()
	con := console.New(m)
	var buf bytes.Buffer
	con.SetOutput(&buf)
	return New(procs, f, con, m), procs, m, &buf
}

func TestGetpidReturnsCallerPID(t *testing.T) {
	st, procs, _, _ := newTestTable(t)
	pid, _ := procs.Create("victim", func(*proc.Process) {}, 1)
	_ = procs.SetRunning(pid)

	f := &trap.Frame{}
	f.Regs[trap.RegA7] = Getpid
	st.Handle(f)

	if f.Regs[trap.RegA0] != uint64(pid) {
		t.Fatalf("a0 = %d, want pid %d", f.Regs[trap.RegA0], pid)
	}
}

func TestWriteSyscallWritesToConsole(t *testing.T) {
	st, procs, m, buf := newTestTable(t)
	pid, _ := procs.Create("writer", func(*proc.Process) {}, 1)
	_ = procs.SetRunning(pid)

	msg := []byte("hi\n")
	bufAddr := m.HeapStart + 100000 // scratch region past the process's stack allocation
	m.WriteBytes(bufAddr, msg)

	f := &trap.Frame{}
	f.Regs[trap.RegA7] = Write
	f.Regs[trap.RegA0] = 1
	f.Regs[trap.RegA1] = bufAddr
	f.Regs[trap.RegA2] = uint64(len(msg))
	st.Handle(f)

	if f.Regs[trap.RegA0] != uint64(len(msg)) {
		t.Fatalf("a0 = %d, want %d", f.Regs[trap.RegA0], len(msg))
	}
	if got, want := buf.String(), "hi\r\n"; got != want {
		t.Fatalf("console output = %q, want %q", got, want)
	}
}

func TestExitSyscallReclaimsStackAndInvokesOnYield(t *testing.T) {
	st, procs, _, _ := newTestTable(t)
	pid, _ := procs.Create("doomed", func(*proc.Process) {}, 1)
	_ = procs.SetRunning(pid)

	called := false
	st.OnYield = func() { called = true }

	f := &trap.Frame{}
	f.Regs[trap.RegA7] = Exit
	f.Regs[trap.RegA0] = 0
	st.Handle(f)

	if !called {
		t.Error("OnYield was not invoked")
	}
	p, _ := procs.ByPID(pid)
	if p.State != proc.Zombie {
		t.Errorf("state = %v, want ZOMBIE", p.State)
	}
}

func TestUnknownSyscallReturnsNegativeOne(t *testing.T) {
	st, _, _, buf := newTestTable(t)
	f := &trap.Frame{}
	f.Regs[trap.RegA7] = 99
	st.Handle(f)

	if int64(f.Regs[trap.RegA0]) != -1 {
		t.Fatalf("a0 = %d, want -1", int64(f.Regs[trap.RegA0]))
	}
	if buf.Len() == 0 {
		t.Error("expected a diagnostic line for an unknown syscall")
	}
}
