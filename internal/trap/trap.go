// Package trap implements cause-register dispatch: deciding whether a
// trap is an interrupt or an exception, and routing it to the timer
// handler, the syscall dispatcher, or fatal-exception handling. The
// interrupt/exception split happens on the top cause bit; within
// exceptions, an ecall (cause 8, 9, or 11) dispatches to the syscall
// handler and advances epc past the ecall instruction, while any other
// cause is treated as fatal.
package trap

import (
	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/mem"
)

// Register slot indices within a Frame, following the standard a0-a7
// calling-convention numbering used to pass syscall arguments.
const (
	RegA0 = 10
	RegA1 = 11
	RegA2 = 12
	RegA7 = 17
)

// Cause codes for the traps this package dispatches.
const (
	InterruptBit        = uint64(1) << 63
	CauseMachineTimer    = 7
	CauseMachineExternal = 11
	CauseEcallFromU      = 8
	CauseEcallFromS      = 9
	CauseEcallFromM      = 11
)

// Frame is the saved register snapshot a trap is dispatched with.
type Frame struct {
	Regs [32]uint64
}

// Handler dispatches traps against a console for diagnostics and a
// simulated timer, delegating syscalls and fatal-exception handling to
// injected callbacks so this package stays independent of internal/proc
// and internal/syscall.
type Handler struct {
	con           *console.Console
	mem           *mem.Memory
	timerInterval uint64

	// Syscall handles an ecall exception. Required.
	Syscall func(f *Frame)
	// OnTimer runs after the timer interrupt re-arms the next deadline.
	OnTimer func()
	// OnFatal handles any exception other than ecall: cause and epc are
	// the values that were dispatched.
	OnFatal func(cause, epc uint64)
}

// New returns a Handler over con and m, re-arming the timer for
// timerInterval ticks on every machine-timer interrupt.
func New(con *console.Console, m *mem.Memory, timerInterval uint64) *Handler {
	return &Handler{con: con, mem: m, timerInterval: timerInterval}
}

// Dispatch routes a trap with the given cause and epc, returning the epc
// value execution should resume at: unchanged for interrupts and fatal
// exceptions, epc+4 for a handled ecall (skipping the ecall instruction
// itself).
func (h *Handler) Dispatch(f *Frame, cause, epc uint64) uint64 {
	if cause&InterruptBit != 0 {
		h.dispatchInterrupt(cause &^ InterruptBit)
		return epc
	}
	return h.dispatchException(f, cause, epc)
}

func (h *Handler) dispatchInterrupt(code uint64) {
	switch code {
	case CauseMachineTimer:
		h.mem.ArmTimer(h.timerInterval)
		if h.OnTimer != nil {
			h.OnTimer()
		}
	case CauseMachineExternal:
		h.con.WriteString("External interrupt\n")
	default:
		h.con.WriteString("Unknown interrupt: ")
		h.con.WriteHex(code)
		h.con.WriteString("\n")
	}
}

func (h *Handler) dispatchException(f *Frame, cause, epc uint64) uint64 {
	switch cause {
	case CauseEcallFromU, CauseEcallFromS, CauseEcallFromM:
		if h.Syscall != nil {
			h.Syscall(f)
		}
		return epc + 4
	default:
		h.con.WriteString("EXCEPTION: ")
		h.con.WriteHex(cause)
		h.con.WriteString(" at PC: ")
		h.con.WriteHex(epc)
		h.con.WriteString("\n")
		if h.OnFatal != nil {
			h.OnFatal(cause, epc)
		}
		return epc
	}
}
