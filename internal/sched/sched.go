// Package sched implements the scheduler entry points: a boot-time Start
// that hands control to one process, and a Tick entry driven by the
// timer handler and by yield/exit/sleep that only sweeps sleeping
// processes awake. Tick never picks or invokes a successor itself; only
// Start ever transfers control, and it does so once, synchronously, to
// the process it was handed.
package sched

import (
	"github.com/arctir/kerneld/internal/mem"
	"github.com/arctir/kerneld/internal/proc"
)

// Scheduler coordinates the process table against the simulated
// monotonic timer.
type Scheduler struct {
	table   *proc.Table
	mem     *mem.Memory
	running bool
}

// New returns a Scheduler over table and mem. It does not start running
// until Start is called.
func New(table *proc.Table, m *mem.Memory) *Scheduler {
	return &Scheduler{table: table, mem: m}
}

// Start marks the scheduler running, transitions pid to RUNNING, and
// invokes its entry point. The call runs on the caller's goroutine and
// only returns once entry itself returns.
func (s *Scheduler) Start(pid int) error {
	s.running = true
	if err := s.table.SetRunning(pid); err != nil {
		return err
	}
	p, _ := s.table.ByPID(pid)
	if p.Entry != nil {
		p.Entry(p)
	}
	return nil
}

// Tick runs the wake-up sweep. It is the scheduler's entry point from the
// timer handler and from yield/exit/sleep: it wakes sleepers whose
// deadline has arrived and nothing else. It does not pick or invoke a
// successor; under this cooperative model, the process that was running
// when Tick fires keeps running until it calls Yield, Sleep, or Exit on
// its own.
func (s *Scheduler) Tick() {
	if !s.running {
		return
	}
	s.table.WakeSweep(s.mem)
}

// Yield is an alias for Tick.
func (s *Scheduler) Yield() {
	s.Tick()
}
