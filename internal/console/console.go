// Package console simulates the UART-backed text console: byte-at-a-time
// output with \n -> \r\n translation, a queued input buffer standing in
// for the UART receive register, and the hex/decimal formatting helpers
// the kernel and shell use for diagnostics and verb output. Every byte
// written passes through a single io.Writer seam so callers can redirect
// or capture console output.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/arctir/kerneld/internal/mem"
)

// Console wraps the simulated UART window of a *mem.Memory with an
// io.Writer sink for the bytes a real terminal would display.
type Console struct {
	m     *mem.Memory
	out   io.Writer
	input []byte
}

// New returns a Console over m that writes to os.Stdout.
func New(m *mem.Memory) *Console {
	return &Console{m: m, out: os.Stdout}
}

// SetOutput redirects PutByte's sink, for tests.
func (c *Console) SetOutput(w io.Writer) {
	c.out = w
}

// Feed queues bytes to be returned by future GetByte calls, standing in
// for a real UART's receive buffer. Used by tests and by --script input.
func (c *Console) Feed(data []byte) {
	c.input = append(c.input, data...)
}

// PutByte writes b to the console, translating a bare '\n' into "\r\n"
// the way a real terminal expects. It also mirrors the byte into the
// UART data register so tests can assert on it directly.
func (c *Console) PutByte(b byte) {
	c.m.WriteByte(mem.UARTData, b)
	if b == '\n' {
		c.out.Write([]byte{'\r', '\n'})
		return
	}
	c.out.Write([]byte{b})
}

// GetByte pops the next queued input byte. The bool result is false when
// no byte is pending, mirroring the UART line-status register's DR bit
// being clear.
func (c *Console) GetByte() (byte, bool) {
	if len(c.input) == 0 {
		return 0, false
	}
	b := c.input[0]
	c.input = c.input[1:]
	return b, true
}

// WriteString writes every byte of s through PutByte.
func (c *Console) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		c.PutByte(s[i])
	}
}

// WriteHex writes n as a "0x"-prefixed hex string with no leading zeros
// (beyond a single digit for zero itself).
func (c *Console) WriteHex(n uint64) {
	c.WriteString(fmt.Sprintf("0x%X", n))
}

// WriteDec writes n in decimal.
func (c *Console) WriteDec(n int64) {
	c.WriteString(fmt.Sprintf("%d", n))
}
