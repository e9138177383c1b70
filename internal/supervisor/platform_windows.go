//go:build windows

package supervisor

import "os"

// isPrivileged always reports true on Windows: sing-box is started
// directly and the elevation helper is never used.
func isPrivileged() bool {
	return true
}

// terminate kills the process. Windows has no SIGTERM equivalent for
// console children that os.Process can deliver.
func terminate(p *os.Process) error {
	return p.Kill()
}
