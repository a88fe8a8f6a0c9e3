// Package kernel wires the memory window, heap, file table, process
// table, trap dispatcher, syscall table, and shell together and
// implements the boot sequence: construct every subsystem, spawn
// init/shell/idle, then enter the scheduler.
package kernel

import (
	"fmt"

	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/files"
	"github.com/arctir/kerneld/internal/heap"
	"github.com/arctir/kerneld/internal/host"
	"github.com/arctir/kerneld/internal/proc"
	"github.com/arctir/kerneld/internal/sched"
	"github.com/arctir/kerneld/internal/shell"
	"github.com/arctir/kerneld/internal/syscall"
	"github.com/arctir/kerneld/internal/trap"

	"github.com/arctir/kerneld/internal/mem"
)

// Default boot parameters, used when a Config field is left at its zero
// value.
const (
	DefaultHeapSize      = 64 * 1024
	DefaultTimerInterval = 10_000_000
)

// Config holds the boot-time parameters a caller (cmd/kerneld) supplies.
// Packaging this as a struct rather than globals keeps multiple Kernel
// instances independent of each other.
type Config struct {
	// HeapSize is the size, in bytes, of the simulated heap window.
	HeapSize uint64
	// TimerInterval is the tick count the machine-timer interrupt is
	// re-armed for on every firing.
	TimerInterval uint64
	// Script, if non-nil, is fed to the console's input queue before boot
	// completes, standing in for a live terminal during tests and demos.
	Script []byte
}

func (c Config) withDefaults() Config {
	if c.HeapSize == 0 {
		c.HeapSize = DefaultHeapSize
	}
	if c.TimerInterval == 0 {
		c.TimerInterval = DefaultTimerInterval
	}
	return c
}

// Kernel is the fully booted context: every subsystem constructed and
// wired, with the three boot-time processes created and the shell ready
// to run.
type Kernel struct {
	Config  Config
	Mem     *mem.Memory
	Console *console.Console
	Alloc   *heap.Allocator
	Files   *files.Table
	Procs   *proc.Table
	Sched   *sched.Scheduler
	Trap    *trap.Handler
	Syscall *syscall.Table
	Shell   *shell.Shell

	InitPID, ShellPID, IdlePID int
}

// Boot brings up a Kernel: it constructs the memory window, heap, file
// table, and process table, wires the trap and syscall dispatchers, and
// spawns the init, shell, and idle processes. It returns an error if any
// of the three boot processes cannot be created (for example, when
// HeapSize is too small for their stacks) or if they do not receive
// PIDs 1, 2, and 3.
func Boot(cfg Config) (*Kernel, error) {
	cfg = cfg.withDefaults()

	m := mem.New(cfg.HeapSize)
	con := console.New(m)
	if len(cfg.Script) > 0 {
		con.Feed(cfg.Script)
	}

	alloc := heap.Init(m)
	fileTable := files.New()
	seedDemoFiles(fileTable)

	procs := proc.NewTable(alloc)
	sys := syscall.New(procs, fileTable, con, m)
	scheduler := sched.New(procs, m)
	sys.OnYield = scheduler.Yield

	sh := shell.New(con, procs, fileTable, alloc, sys)

	k := &Kernel{
		Config:  cfg,
		Mem:     m,
		Console: con,
		Alloc:   alloc,
		Files:   fileTable,
		Procs:   procs,
		Sched:   scheduler,
		Syscall: sys,
		Shell:   sh,
	}
	k.Trap = trap.New(con, m, cfg.TimerInterval)
	k.Trap.Syscall = sys.Handle
	k.Trap.OnTimer = scheduler.Tick
	k.Trap.OnFatal = func(cause, epc uint64) { sys.Exit(-1) }

	con.WriteString("\n=== kerneld Booting ===\n")
	con.WriteString("Kernel Version 1.0\n\n")
	con.WriteString("Initializing memory management...\n")
	con.WriteString("  Heap start: ")
	con.WriteHex(m.HeapStart)
	con.WriteString("\n  Heap end: ")
	con.WriteHex(m.HeapEnd)
	con.WriteString("\n  Heap size: ")
	con.WriteDec(int64(cfg.HeapSize))
	con.WriteString(" bytes\n")

	con.WriteString("Initializing process management...\n")
	con.WriteString("Initializing filesystem...\n")
	con.WriteString("Creating initial processes...\n")

	initPID, err := procs.Create("init", k.initEntry, 1)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed creating init process: %w", err)
	}
	shellPID, err := procs.Create("shell", k.shellEntry, 1)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed creating shell process: %w", err)
	}
	idlePID, err := procs.Create("idle", k.idleEntry, 0)
	if err != nil {
		return nil, fmt.Errorf("kernel: failed creating idle process: %w", err)
	}
	if initPID != 1 || shellPID != 2 || idlePID != 3 {
		return nil, fmt.Errorf("kernel: unexpected boot PIDs: init=%d shell=%d idle=%d", initPID, shellPID, idlePID)
	}
	k.InitPID, k.ShellPID, k.IdlePID = initPID, shellPID, idlePID

	con.WriteString("Created init process (PID ")
	con.WriteDec(int64(initPID))
	con.WriteString(")\nCreated shell process (PID ")
	con.WriteDec(int64(shellPID))
	con.WriteString(")\nCreated idle process (PID ")
	con.WriteDec(int64(idlePID))
	con.WriteString(")\n\n=== Boot Complete ===\nStarting scheduler...\n\n")

	con.WriteString(host.Detect().Banner())
	con.WriteString("\n")

	m.ArmTimer(cfg.TimerInterval)

	return k, nil
}

// Run starts the scheduler on the init process and, if ticks > 0, stops
// after running that many timer ticks instead of blocking forever.
// ticks == 0 runs every pending REPL line to completion. In either mode
// the run also ends when the shell's Done goes true or when the console's
// input queue holds no further complete line, since there is no real
// terminal to block on.
func (k *Kernel) Run(ticks int) error {
	if err := k.Sched.Start(k.InitPID); err != nil {
		return err
	}
	k.Shell.Start()

	n := 0
	for !k.Shell.Done() {
		if ticks > 0 && n >= ticks {
			break
		}
		if !k.Shell.ReadEvalPrint() {
			break
		}
		k.Mem.AdvanceMTime(k.Config.TimerInterval)
		k.Trap.Dispatch(&trap.Frame{}, trap.InterruptBit|trap.CauseMachineTimer, 0)
		n++
	}
	return nil
}

func (k *Kernel) initEntry(p *proc.Process) {
	k.Console.WriteString("[INIT] Init process starting\n")
	k.Console.WriteString("[INIT] Initialization complete\n")
}

func (k *Kernel) shellEntry(p *proc.Process) {
	// The interactive loop itself runs from Run via Shell.ReadEvalPrint.
	// Run starts the scheduler on init, so this entry point is not
	// invoked there.
}

func (k *Kernel) idleEntry(p *proc.Process) {
	// Idle has nothing to do between timer ticks; there is no busy work
	// to simulate here.
}

// seedDemoFiles creates a couple of demo files before any user
// interacts with the shell.
func seedDemoFiles(f *files.Table) {
	_ = f.Create("hello.txt", []byte("Hello from the filesystem!\n"))
	_ = f.Create("readme.txt", []byte("kerneld - a simulated RISC-V OS\n"))
}
