// Package shell implements the interactive line-editing command surface:
// a REPL reading bytes off the simulated console, supporting backspace
// and CR/LF termination, dispatching completed lines through a verb
// table.
package shell

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/arctir/kerneld/internal/console"
	"github.com/arctir/kerneld/internal/files"
	"github.com/arctir/kerneld/internal/heap"
	"github.com/arctir/kerneld/internal/proc"
	"github.com/arctir/kerneld/internal/syscall"
	"github.com/olekukonko/tablewriter"
)

const maxLine = 127

const banner = "=====================================\n  kerneld shell\n=====================================\nCommands: help, ps, ls, cat <file>, echo <text>[ > <file>], create <file>, exec <file>, mem, clear, exit\nType 'help' for command list\n\n"

// Shell is a single REPL instance bound to one console and kernel
// context. Exit sets done once the `exit` verb has run; the boot
// sequence's --boot-ticks mode checks Done after every line.
type Shell struct {
	con    *console.Console
	procs  *proc.Table
	files  *files.Table
	alloc  *heap.Allocator
	sys    *syscall.Table
	verbs  map[string]func(*Shell, string)
	done   bool
}

// New returns a Shell wired to the given subsystems.
func New(con *console.Console, procs *proc.Table, f *files.Table, alloc *heap.Allocator, sys *syscall.Table) *Shell {
	s := &Shell{con: con, procs: procs, files: f, alloc: alloc, sys: sys}
	s.verbs = map[string]func(*Shell, string){
		"help":   (*Shell).cmdHelp,
		"ps":     (*Shell).cmdPs,
		"ls":     (*Shell).cmdLs,
		"cat":    (*Shell).cmdCat,
		"echo":   (*Shell).cmdEcho,
		"create": (*Shell).cmdCreate,
		"exec":   (*Shell).cmdExec,
		"mem":    (*Shell).cmdMem,
		"clear":  (*Shell).cmdClear,
		"exit":   (*Shell).cmdExit,
	}
	return s
}

// Done reports whether the `exit` verb has run.
func (s *Shell) Done() bool {
	return s.done
}

// Start prints the banner. Call once before the first ReadEvalPrint or
// Dispatch.
func (s *Shell) Start() {
	s.con.WriteString("\n")
	s.con.WriteString(banner)
}

// ReadEvalPrint reads one line from the console and dispatches it. It
// returns false if no complete line is available (the console's input
// queue ran dry). Bytes of an incomplete line read before that point are
// consumed and not kept for a later call.
func (s *Shell) ReadEvalPrint() bool {
	s.con.WriteString("$ ")
	line, ok := s.readLine()
	if !ok {
		return false
	}
	if line == "" {
		return true
	}
	s.Dispatch(line)
	return true
}

// readLine collects bytes until CR/LF, honoring backspace (0x7F/0x08,
// erasing with "\b \b") and filtering to printable ASCII.
func (s *Shell) readLine() (string, bool) {
	var buf []byte
	for {
		b, ok := s.con.GetByte()
		if !ok {
			return "", false
		}
		switch {
		case b == 127 || b == 8:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				s.con.WriteString("\b \b")
			}
		case b == '\r' || b == '\n':
			s.con.WriteString("\n")
			return string(buf), true
		case b >= 32 && b < 127 && len(buf) < maxLine:
			buf = append(buf, b)
			s.con.PutByte(b)
		}
	}
}

// Dispatch parses and runs a single completed line (exported so tests
// and --script mode can feed whole lines without going through the
// byte-at-a-time reader).
func (s *Shell) Dispatch(line string) {
	verb, rest, _ := strings.Cut(line, " ")
	fn, ok := s.verbs[verb]
	if !ok {
		s.con.WriteString("Unknown command: ")
		s.con.WriteString(verb)
		s.con.WriteString("\n")
		s.con.WriteString("Type 'help' for available commands\n\n")
		return
	}
	fn(s, strings.TrimSpace(rest))
}

func (s *Shell) cmdHelp(string) {
	s.con.WriteString("\nAvailable commands:\n")
	s.con.WriteString("  help                        - Show this help\n")
	s.con.WriteString("  ps                          - List processes\n")
	s.con.WriteString("  ls                          - List files\n")
	s.con.WriteString("  cat <file>                  - Display file contents\n")
	s.con.WriteString("  echo <text> [> <file>]      - Print text, or write it to a file\n")
	s.con.WriteString("  create <file>               - Create a test file\n")
	s.con.WriteString("  exec <file>                 - Execute a program\n")
	s.con.WriteString("  mem                         - Show memory usage\n")
	s.con.WriteString("  clear                       - Clear screen\n")
	s.con.WriteString("  exit                        - Exit shell\n\n")
}

func (s *Shell) cmdPs(string) {
	s.con.WriteString("\n")
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "STATE", "PRIORITY", "NAME"})
	for _, p := range s.procs.Snapshot() {
		table.Append([]string{
			strconv.Itoa(p.PID),
			p.State.String(),
			strconv.Itoa(p.Priority),
			p.Name,
		})
	}
	table.Render()
	s.con.WriteString(buf.String())
	s.con.WriteString("\n")
}

func (s *Shell) cmdLs(string) {
	s.con.WriteString("\n")
	names := s.files.List()
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"NAME", "SIZE"})
	for _, name := range names {
		size, _ := s.files.Size(name)
		table.Append([]string{name, strconv.Itoa(size)})
	}
	table.Render()
	s.con.WriteString(buf.String())
	s.con.WriteString("\n")
}

func (s *Shell) cmdCat(arg string) {
	if arg == "" {
		s.con.WriteString("Usage: cat <filename>\n\n")
		return
	}
	h, ok := s.files.Open(arg)
	if !ok {
		s.con.WriteString("File not found: ")
		s.con.WriteString(arg)
		s.con.WriteString("\n\n")
		return
	}
	data, _ := s.files.Read(h)
	s.con.WriteString("\n")
	s.con.WriteString(string(data))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		s.con.WriteString("\n")
	}
	s.con.WriteString("\n")
}

// cmdEcho implements `echo <text>` and the `echo <text> > <file>`
// redirect form, which calls files.Table.Overwrite rather than Create so
// re-running a redirect replaces the file instead of failing.
func (s *Shell) cmdEcho(arg string) {
	text, target, redirect := strings.Cut(arg, ">")
	text = strings.TrimSpace(text)
	if !redirect {
		s.con.WriteString(text)
		s.con.WriteString("\n")
		return
	}
	target = strings.TrimSpace(target)
	if target == "" {
		s.con.WriteString("Usage: echo <text> > <filename>\n\n")
		return
	}
	if err := s.files.Overwrite(target, []byte(text+"\n")); err != nil {
		s.con.WriteString("Failed to write file: ")
		s.con.WriteString(err.Error())
		s.con.WriteString("\n\n")
		return
	}
	s.con.WriteString("Wrote ")
	s.con.WriteString(target)
	s.con.WriteString("\n\n")
}

func (s *Shell) cmdCreate(arg string) {
	if arg == "" {
		s.con.WriteString("Usage: create <filename>\n\n")
		return
	}
	content := "This is a test file created at runtime: " + arg + "\n"
	if err := s.files.Create(arg, []byte(content)); err != nil {
		s.con.WriteString("Failed to create file\n\n")
		return
	}
	s.con.WriteString("File created: ")
	s.con.WriteString(arg)
	s.con.WriteString("\n\n")
}

func (s *Shell) cmdExec(arg string) {
	if arg == "" {
		s.con.WriteString("Usage: exec <filename>\n\n")
		return
	}
	s.sys.ExecByName(arg)
	s.con.WriteString("\n")
}

func (s *Shell) cmdMem(string) {
	s.con.WriteString("\n")
	stats := s.alloc.Stats()
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"TOTAL", "ALLOCATED", "FREE", "BLOCKS"})
	table.Append([]string{
		strconv.FormatUint(stats.TotalHeap, 10),
		strconv.FormatUint(stats.Allocated, 10),
		strconv.FormatUint(stats.Free, 10),
		strconv.Itoa(stats.Blocks),
	})
	table.Render()
	s.con.WriteString(buf.String())
	s.con.WriteString("\n")
}

func (s *Shell) cmdClear(string) {
	s.con.WriteString("\033[2J\033[H")
	s.con.WriteString(banner)
}

func (s *Shell) cmdExit(string) {
	s.con.WriteString("\nExiting shell...\n\n")
	s.done = true
	s.sys.Exit(0)
}
