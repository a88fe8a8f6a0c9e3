package sched

import (
	"testing"

	"github.com/arctir/kerneld/internal/heap"
	"github.com/arctir/kerneld/internal/mem"
	"github.com/arctir/kerneld/internal/proc"
)

func newTestScheduler(t *testing.T) (*Scheduler, *proc.Table, *mem.Memory) {
	t.Helper()
	m := mem.New(1 << 16)
	a := heap.Init(m)
	tab := proc.NewTable(a)
	return New(tab, m), tab, m
}

func TestStartInvokesEntrySynchronously(t *testing.T) {
	s, tab, _ := newTestScheduler(t)
	ran := false
	pid, _ := tab.Create("a", func(*proc.Process) { ran = true }, 1)

	if err := s.Start(pid); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("Start did not invoke the process's entry point")
	}
	p, _ := tab.ByPID(pid)
	if p.State != proc.Running {
		t.Errorf("state = %v, want RUNNING", p.State)
	}
}

func TestTickOnlySweepsSleepersAndNeverInvokesEntry(t *testing.T) {
	s, tab, m := newTestScheduler(t)
	invoked := false
	pid, _ := tab.Create("sleeper", func(*proc.Process) { invoked = true }, 1)
	_ = tab.SetRunning(pid)
	tab.Sleep(m, 1000)

	s.running = true
	m.AdvanceMTime(1000)
	s.Tick()

	p, _ := tab.ByPID(pid)
	if p.State != proc.Ready {
		t.Fatalf("state = %v, want READY after Tick's wake sweep", p.State)
	}
	if invoked {
		t.Error("Tick must not invoke a process's entry point; only Start does")
	}
}

func TestTickIsNoOpBeforeStart(t *testing.T) {
	s, tab, m := newTestScheduler(t)
	pid, _ := tab.Create("a", func(*proc.Process) {}, 1)
	_ = tab.SetRunning(pid)
	tab.Sleep(m, 1000)
	m.AdvanceMTime(1000)

	s.Tick() // running is still false
	p, _ := tab.ByPID(pid)
	if p.State != proc.Sleeping {
		t.Errorf("state = %v, want SLEEPING (Tick before Start should be a no-op)", p.State)
	}
}
