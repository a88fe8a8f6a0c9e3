package trap

import (
	"bytes"
	"testing"

	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/mem"
)

func newTestHandler() (*Handler, *bytes.Buffer) {
	m := mem.New(0x1000)
	con := console.New(m)
	var buf bytes.Buffer
	con.SetOutput(&buf)
	return New(con, m, 10_000_000), &buf
}

func TestDispatchTimerInterruptRearmsAndCallsOnTimer(t *testing.T) {
	h, _ := newTestHandler()
	called := false
	h.OnTimer = func() { called = true }

	before := h.mem.ReadU64(mem.MTimeCmpAddr)
	newEPC := h.Dispatch(&Frame{}, InterruptBit|CauseMachineTimer, 0x1000)
	if newEPC != 0x1000 {
		t.Errorf("epc = %#x, want unchanged 0x1000", newEPC)
	}
	if !called {
		t.Error("OnTimer was not invoked")
	}
	if after := h.mem.ReadU64(mem.MTimeCmpAddr); after == before {
		t.Error("timer was not re-armed")
	}
}

func TestDispatchEcallInvokesSyscallAndAdvancesEPC(t *testing.T) {
	h, _ := newTestHandler()
	var seen *Frame
	h.Syscall = func(f *Frame) { seen = f }

	f := &Frame{}
	f.Regs[RegA7] = 5
	newEPC := h.Dispatch(f, CauseEcallFromU, 0x2000)

	if newEPC != 0x2004 {
		t.Errorf("epc = %#x, want 0x2004 (epc+4)", newEPC)
	}
	if seen != f {
		t.Error("Syscall was not invoked with the trapping frame")
	}
}

func TestDispatchUnknownExceptionCallsOnFatal(t *testing.T) {
	h, _ := newTestHandler()
	var gotCause, gotEPC uint64
	h.OnFatal = func(cause, epc uint64) { gotCause, gotEPC = cause, epc }

	newEPC := h.Dispatch(&Frame{}, 13, 0x3000)
	if newEPC != 0x3000 {
		t.Errorf("epc = %#x, want unchanged 0x3000", newEPC)
	}
	if gotCause != 13 || gotEPC != 0x3000 {
		t.Errorf("OnFatal(%d, %#x), want OnFatal(13, 0x3000)", gotCause, gotEPC)
	}
}

func TestDispatchUnknownInterruptWritesDiagnostic(t *testing.T) {
	h, buf := newTestHandler()
	h.Dispatch(&Frame{}, InterruptBit|99, 0)
	if got, want := buf.String(), "Unknown interrupt: 0x63\r\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
