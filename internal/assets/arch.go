// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package assets

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// ErrUnsupportedArch is returned for machines sing-box publishes no build for.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// releaseArch maps machine identifiers to the architecture token used in
// sing-box release asset names.
var releaseArch = map[string]string{
	"x86_64":  "amd64",
	"x86":     "386",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"arm":     "armv7",
}

// machineAliases normalises uname and GOARCH spellings onto the keys of releaseArch.
var machineAliases = map[string]string{
	"amd64":  "x86_64",
	"386":    "x86",
	"i386":   "x86",
	"i686":   "x86",
	"armv7":  "arm",
	"armv7l": "arm",
}

// ReleaseArch returns the release asset architecture token for machine.
// Anything outside the table fails with ErrUnsupportedArch.
func ReleaseArch(machine string) (string, error) {
	if canonical, ok := machineAliases[machine]; ok {
		machine = canonical
	}
	if arch, ok := releaseArch[machine]; ok {
		return arch, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedArch, machine)
}

// DetectMachine returns the kernel's machine identifier (uname -m on
// unix). If the host cannot be queried it falls back to runtime.GOARCH,
// which ReleaseArch also understands for the supported targets.
func DetectMachine() string {
	if arch, err := host.KernelArch(); err == nil && arch != "" {
		return arch
	}
	return runtime.GOARCH
}
