//go:build !windows

package supervisor

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// isPrivileged reports whether the launcher already runs as root, in
// which case sing-box is started without the elevation helper.
func isPrivileged() bool {
	return unix.Geteuid() == 0
}

// terminate sends SIGTERM so sing-box can tear down its TUN interface.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
