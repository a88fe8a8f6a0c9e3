// Package host reports details about the machine actually running the
// kernel simulator (the "host"), as distinct from the simulated RISC-V
// target it boots. A real QEMU invocation prints similar host capability
// information before handing control to the guest; this package is the
// simulator's equivalent of that banner.
package host

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const unknownKey = "UNKNOWN"

// Info describes the host process running the kernel simulator.
type Info struct {
	Arch string
	OS   string
}

// Banner returns a short human-readable description of the host, suitable
// for printing once at boot via the console.
func (i Info) Banner() string {
	return fmt.Sprintf("host: %s/%s", i.OS, i.Arch)
}

// Detect resolves host details using the same uname(2) call a real boot
// loader would use to report platform capabilities. If uname cannot be
// resolved, unknownKey ("UNKNOWN") is reported in its place rather than
// failing boot.
func Detect() Info {
	return Info{
		Arch: getArch(),
		OS:   getOS(),
	}
}

// getArch calls the equivalent of uname -m to get the host architecture
// (e.g. x86_64 or aarch64).
func getArch() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return unknownKey
	}
	return unix.ByteSliceToString(utsname.Machine[:])
}

// getOS calls the equivalent of uname -s to get the host kernel name (e.g.
// Linux).
func getOS() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return unknownKey
	}
	return unix.ByteSliceToString(utsname.Sysname[:])
}
